package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"famreport/internal/core"
	"famreport/internal/log"
	"famreport/internal/remote"
	"famreport/internal/storage"
)

// LocalStore is the device-local persistence of the report.
type LocalStore interface {
	LoadReport(ctx context.Context) (core.Report, error)
	SaveReport(ctx context.Context, r core.Report) error
	DeleteReport(ctx context.Context) error
}

// RemoteStore is the optional server copy of the report.
type RemoteStore interface {
	Enabled() bool
	FetchReport(ctx context.Context) (core.Report, error)
	SaveReport(ctx context.Context, r core.Report) error
	DeleteReport(ctx context.Context) error
}

const (
	targetLocal  = "local"
	targetRemote = "remote"
)

// ReportSession owns the in-memory report of one device. Mutations apply
// synchronously; every accepted mutation gets the next sequence number and
// is then written to the local and remote stores in the background.
// Persistence failures are logged and never change the in-memory value.
type ReportSession struct {
	local  LocalStore
	remote RemoteStore
	logger *slog.Logger
	ctx    context.Context

	mu     sync.Mutex
	report core.Report
	seq    uint64

	localW  *orderedWriter
	remoteW *orderedWriter
	pending sync.WaitGroup

	refreshed chan struct{}
}

// OpenSession loads the local report (or the default template) and, when a
// remote store is enabled, starts fetching the server copy. A fetched
// report replaces the in-memory one unless a mutation was accepted while the
// fetch was in flight.
func OpenSession(ctx context.Context, local LocalStore, remoteStore RemoteStore, logger *slog.Logger) *ReportSession {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ReportSession{
		local:     local,
		remote:    remoteStore,
		logger:    logger.With(log.FieldComponent, log.ComponentSession),
		ctx:       context.WithoutCancel(ctx),
		refreshed: make(chan struct{}),
	}
	s.localW = &orderedWriter{target: targetLocal, save: local.SaveReport, del: local.DeleteReport}
	if s.remoteEnabled() {
		s.remoteW = &orderedWriter{target: targetRemote, save: remoteStore.SaveReport, del: remoteStore.DeleteReport}
	}

	s.report = s.loadLocal(ctx)

	if !s.remoteEnabled() {
		close(s.refreshed)
		return s
	}
	go s.refresh(s.seq)
	return s
}

func (s *ReportSession) remoteEnabled() bool {
	return s.remote != nil && s.remote.Enabled()
}

func (s *ReportSession) loadLocal(ctx context.Context) core.Report {
	r, err := s.local.LoadReport(ctx)
	switch {
	case err == nil:
		s.logger.DebugContext(ctx, "Loaded local report", log.FieldOperation, log.OpLoad)
		return r
	case errors.Is(err, storage.ErrNoReport):
		s.logger.InfoContext(ctx, "No local report, starting from template")
	default:
		s.logger.WarnContext(ctx, "Failed to load local report, starting from template",
			log.FieldTarget, targetLocal, log.FieldError, err)
	}
	return core.Default()
}

func (s *ReportSession) refresh(startSeq uint64) {
	defer close(s.refreshed)

	r, err := s.remote.FetchReport(s.ctx)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, remote.ErrNoData) {
			level = slog.LevelInfo
		}
		s.logger.Log(s.ctx, level, "Remote report not loaded",
			log.FieldTarget, targetRemote, log.FieldError, err)
		return
	}

	s.mu.Lock()
	if s.seq != startSeq {
		s.mu.Unlock()
		s.logger.InfoContext(s.ctx, "Discarding remote report, local edits happened during fetch",
			log.FieldSeq, startSeq)
		return
	}
	s.report = r
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.logger.InfoContext(s.ctx, "Loaded remote report", log.FieldSeq, seq)
	s.persist(seq, r, s.localW)
}

// AwaitRefresh blocks until the startup remote fetch has finished.
func (s *ReportSession) AwaitRefresh(ctx context.Context) error {
	select {
	case <-s.refreshed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Report returns the current in-memory report.
func (s *ReportSession) Report() core.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Seq returns the sequence number of the current report.
func (s *ReportSession) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Apply runs fn against the current report. On error the report is left
// unchanged and nothing is persisted.
func (s *ReportSession) Apply(fn func(core.Report) (core.Report, error)) (core.Report, error) {
	s.mu.Lock()
	next, err := fn(s.report)
	if err != nil {
		cur := s.report
		s.mu.Unlock()
		return cur, err
	}
	s.report = next
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.persist(seq, next, s.localW, s.remoteW)
	return next, nil
}

func (s *ReportSession) apply(fn func(core.Report) core.Report) core.Report {
	r, _ := s.Apply(func(r core.Report) (core.Report, error) { return fn(r), nil })
	return r
}

func (s *ReportSession) persist(seq uint64, r core.Report, writers ...*orderedWriter) {
	for _, w := range writers {
		if w == nil {
			continue
		}
		s.pending.Add(1)
		go func(w *orderedWriter) {
			defer s.pending.Done()
			s.store(s.ctx, w, seq, r)
		}(w)
	}
}

func (s *ReportSession) store(ctx context.Context, w *orderedWriter, seq uint64, r core.Report) {
	written, err := w.write(ctx, seq, r)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "Failed to persist report",
			log.FieldTarget, w.target, log.FieldSeq, seq, log.FieldError, err)
	case !written:
		s.logger.DebugContext(ctx, "Skipped superseded write",
			log.FieldTarget, w.target, log.FieldSeq, seq)
	}
}

func (s *ReportSession) remove(ctx context.Context, w *orderedWriter, seq uint64) {
	deleted, err := w.remove(ctx, seq)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "Failed to delete report",
			log.FieldTarget, w.target, log.FieldSeq, seq, log.FieldError, err)
	case !deleted:
		s.logger.DebugContext(ctx, "Skipped superseded delete",
			log.FieldTarget, w.target, log.FieldSeq, seq)
	}
}

// Flush waits for every background write started so far.
func (s *ReportSession) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Save writes the current report to both stores again.
func (s *ReportSession) Save() core.Report {
	return s.apply(func(r core.Report) core.Report { return r })
}

// Replace swaps in a whole report, e.g. one imported from a file.
func (s *ReportSession) Replace(r core.Report) core.Report {
	return s.apply(func(core.Report) core.Report { return r })
}

// Reset replaces the report with the default template.
func (s *ReportSession) Reset() core.Report {
	return s.Replace(core.Default())
}

// DeleteReport removes the local and remote copies, then continues with the
// default template saved locally only. The delete takes the next sequence
// number, so writes of older versions still queued are dropped and newer
// edits win over it. Delete failures are logged.
func (s *ReportSession) DeleteReport(ctx context.Context) core.Report {
	s.mu.Lock()
	r := core.Default()
	s.report = r
	s.seq += 2
	delSeq, saveSeq := s.seq-1, s.seq
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.remove(gctx, s.localW, delSeq)
		s.store(gctx, s.localW, saveSeq, r)
		return nil
	})
	if s.remoteW != nil {
		g.Go(func() error {
			s.remove(gctx, s.remoteW, delSeq)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "Report deleted, template restored", log.FieldSeq, saveSeq)
	return r
}

func (s *ReportSession) AddYear(year string) (core.Report, error) {
	return s.Apply(func(r core.Report) (core.Report, error) { return core.AddYear(r, year) })
}

func (s *ReportSession) AddMonth(month string) (core.Report, error) {
	return s.Apply(func(r core.Report) (core.Report, error) { return core.AddMonth(r, month) })
}

func (s *ReportSession) AddDay(day string) (core.Report, error) {
	return s.Apply(func(r core.Report) (core.Report, error) { return core.AddDay(r, day) })
}

func (s *ReportSession) AddPeriod(mode core.ViewMode, key string) (core.Report, error) {
	return s.Apply(func(r core.Report) (core.Report, error) { return core.AddPeriod(r, mode, key) })
}

func (s *ReportSession) AddItem(groupID, name string) (core.Item, error) {
	var added core.Item
	_, err := s.Apply(func(r core.Report) (core.Report, error) {
		next, it, err := core.AddItem(r, groupID, name)
		added = it
		return next, err
	})
	return added, err
}

func (s *ReportSession) AddSubItem(groupID, parentID, name string) (core.Item, error) {
	var added core.Item
	_, err := s.Apply(func(r core.Report) (core.Report, error) {
		next, it, err := core.AddSubItem(r, groupID, parentID, name)
		added = it
		return next, err
	})
	return added, err
}

func (s *ReportSession) RenameItem(groupID, itemID, name string) (core.Report, error) {
	return s.Apply(func(r core.Report) (core.Report, error) { return core.RenameItem(r, groupID, itemID, name) })
}

func (s *ReportSession) SetItemNote(groupID, itemID, note string) core.Report {
	return s.apply(func(r core.Report) core.Report { return core.SetItemNote(r, groupID, itemID, note) })
}

func (s *ReportSession) DeleteItem(groupID, itemID string) core.Report {
	return s.apply(func(r core.Report) core.Report { return core.DeleteItem(r, groupID, itemID) })
}

func (s *ReportSession) UpdateItemValue(groupID, itemID, period string, amount float64) (core.Report, error) {
	return s.Apply(func(r core.Report) (core.Report, error) {
		return core.UpdateItemValue(r, groupID, itemID, period, amount)
	})
}

func (s *ReportSession) UpdateItemQuantity(groupID, itemID, period string, qty float64) (core.Report, error) {
	return s.Apply(func(r core.Report) (core.Report, error) {
		return core.UpdateItemQuantity(r, groupID, itemID, period, qty)
	})
}

func (s *ReportSession) UpdateItemUnitPrice(groupID, itemID, period string, price float64) (core.Report, error) {
	return s.Apply(func(r core.Report) (core.Report, error) {
		return core.UpdateItemUnitPrice(r, groupID, itemID, period, price)
	})
}

func (s *ReportSession) AddNote(label, value string) core.Note {
	var added core.Note
	s.apply(func(r core.Report) core.Report {
		next, n := core.AddNote(r, label, value)
		added = n
		return next
	})
	return added
}

func (s *ReportSession) UpdateNote(id, label, value string) core.Report {
	return s.apply(func(r core.Report) core.Report { return core.UpdateNote(r, id, label, value) })
}

func (s *ReportSession) DeleteNote(id string) core.Report {
	return s.apply(func(r core.Report) core.Report { return core.DeleteNote(r, id) })
}

func (s *ReportSession) TakeSnapshot(day, note string) (core.Snapshot, error) {
	var taken core.Snapshot
	_, err := s.Apply(func(r core.Report) (core.Report, error) {
		next, snap, err := core.TakeSnapshot(r, day, note)
		taken = snap
		return next, err
	})
	return taken, err
}

func (s *ReportSession) DeleteSnapshot(id string) core.Report {
	return s.apply(func(r core.Report) core.Report { return core.DeleteSnapshot(r, id) })
}

// orderedWriter persists to one target and drops writes and deletes older
// than the newest one it has already started.
type orderedWriter struct {
	target string
	save   func(context.Context, core.Report) error
	del    func(context.Context) error

	mu   sync.Mutex
	last uint64
}

func (w *orderedWriter) write(ctx context.Context, seq uint64, r core.Report) (bool, error) {
	return w.run(seq, func() error { return w.save(ctx, r) })
}

func (w *orderedWriter) remove(ctx context.Context, seq uint64) (bool, error) {
	return w.run(seq, func() error { return w.del(ctx) })
}

func (w *orderedWriter) run(seq uint64, op func() error) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq <= w.last {
		return false, nil
	}
	w.last = seq
	return true, op()
}
