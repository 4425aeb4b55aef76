// Package terminal implements the reportctl command line: a cobra command
// tree over a ReportSession, rendered with lipgloss.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"famreport/internal/core"
	"famreport/internal/export"
	"famreport/internal/services"
)

// Opener creates the session a command runs against.
type Opener func(ctx context.Context) (*services.ReportSession, error)

type App struct {
	open     Opener
	session  *services.ReportSession
	out      io.Writer
	styles   Styles
	fontPath string
	flushFor time.Duration
	now      func() time.Time
}

type Option func(*App)

func WithOutput(w io.Writer) Option           { return func(a *App) { a.out = w } }
func WithFontPath(path string) Option         { return func(a *App) { a.fontPath = path } }
func WithStyles(s Styles) Option              { return func(a *App) { a.styles = s } }
func WithFlushTimeout(d time.Duration) Option { return func(a *App) { a.flushFor = d } }

// NewRootCmd builds the reportctl command tree. The session is opened before
// any subcommand runs and flushed after it finishes.
func NewRootCmd(open Opener, opts ...Option) *cobra.Command {
	a := &App{
		open:     open,
		out:      os.Stdout,
		styles:   DefaultStyles(),
		flushFor: 10 * time.Second,
		now:      time.Now,
	}
	for _, o := range opts {
		o(a)
	}

	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Edit the family finance report",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open report: %w", err)
			}
			a.session = s
			return s.AwaitRefresh(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.flush(cmd.Context())
		},
	}
	root.SetOut(a.out)

	root.AddCommand(
		a.showCmd(),
		a.summaryCmd(),
		a.addPeriodCmd("add-year", "YYYY", core.ViewYear),
		a.addPeriodCmd("add-month", "YYYY-MM", core.ViewMonth),
		a.addPeriodCmd("add-day", "YYYY-MM-DD", core.ViewDay),
		a.itemCmd(),
		a.noteCmd(),
		a.snapshotCmd(),
		a.exportCmd(),
		a.migrateCmd(),
		a.saveCmd(),
		a.resetCmd(),
		a.deleteCmd(),
	)
	return root
}

func (a *App) flush(ctx context.Context) error {
	if a.session == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.flushFor)
	defer cancel()
	if err := a.session.Flush(ctx); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}
	return nil
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}

type viewFlags struct {
	view   string
	period string
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.view, "view", "v", string(core.ViewYear), "view: year, month or day")
	cmd.Flags().StringVarP(&f.period, "period", "p", "", "period key (default: latest of the view)")
}

func (f *viewFlags) resolve(r core.Report) (core.ViewMode, string, error) {
	mode, err := core.ParseViewMode(f.view)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", err, f.view)
	}
	period := f.period
	if period == "" {
		period = r.LatestPeriod(mode)
	}
	if kind, ok := core.KindOf(period); !ok || kind != mode {
		return "", "", fmt.Errorf("%w: %q for %s view", core.ErrInvalidPeriod, period, mode)
	}
	return mode, period, nil
}

func (a *App) showCmd() *cobra.Command {
	var vf viewFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the report for one period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := a.session.Report()
			mode, period, err := vf.resolve(r)
			if err != nil {
				return err
			}
			a.println(renderGroups(a.styles, r, mode, period))
			a.println(renderSummary(a.styles, mode, r.Summary(mode, period)))
			a.println(renderNotes(a.styles, r.Notes()))
			return nil
		},
	}
	vf.register(cmd)
	return cmd
}

func (a *App) summaryCmd() *cobra.Command {
	var vf viewFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the totals of one period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := a.session.Report()
			mode, period, err := vf.resolve(r)
			if err != nil {
				return err
			}
			a.println(renderSummary(a.styles, mode, r.Summary(mode, period)))
			return nil
		},
	}
	vf.register(cmd)
	return cmd
}

func (a *App) addPeriodCmd(use, arg string, mode core.ViewMode) *cobra.Command {
	return &cobra.Command{
		Use:   use + " " + arg,
		Short: fmt.Sprintf("Add a %s period", mode),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session.AddPeriod(mode, args[0]); err != nil {
				return err
			}
			a.println(fmt.Sprintf("added %s %s", mode, args[0]))
			return nil
		},
	}
}

func (a *App) itemCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "item", Short: "Edit line items"}

	var parent string
	add := &cobra.Command{
		Use:   "add GROUP NAME",
		Short: "Add an item to a group, or a sub-item with --parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				it  core.Item
				err error
			)
			if parent == "" {
				it, err = a.session.AddItem(args[0], args[1])
			} else {
				it, err = a.session.AddSubItem(args[0], parent, args[1])
			}
			if err != nil {
				return err
			}
			if it.ID == "" {
				return fmt.Errorf("no group %q or parent %q", args[0], parent)
			}
			a.println("added " + it.ID)
			return nil
		},
	}
	add.Flags().StringVar(&parent, "parent", "", "parent item id")

	rename := &cobra.Command{
		Use:   "rename GROUP ITEM NAME",
		Short: "Rename an item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.session.RenameItem(args[0], args[1], args[2])
			return err
		},
	}

	del := &cobra.Command{
		Use:   "delete GROUP ITEM",
		Short: "Delete an item and its sub-items",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.session.DeleteItem(args[0], args[1])
			return nil
		},
	}

	setValue := &cobra.Command{
		Use:   "set-value GROUP ITEM PERIOD AMOUNT",
		Short: "Set the amount of a leaf item for a period",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[3])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[3], err)
			}
			_, err = a.session.UpdateItemValue(args[0], args[1], args[2], amount)
			return err
		},
	}

	var unitPrice string
	setQty := &cobra.Command{
		Use:   "set-quantity GROUP ITEM PERIOD QUANTITY",
		Short: "Set the quantity of a leaf item, optionally with --unit-price",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("quantity %q: %w", args[3], core.ErrInvalidAmount)
			}
			if unitPrice != "" {
				price, err := core.ParseAmount(unitPrice)
				if err != nil {
					return fmt.Errorf("unit price %q: %w", unitPrice, err)
				}
				if _, err := a.session.UpdateItemUnitPrice(args[0], args[1], args[2], price); err != nil {
					return err
				}
			}
			_, err = a.session.UpdateItemQuantity(args[0], args[1], args[2], qty)
			return err
		},
	}
	setQty.Flags().StringVar(&unitPrice, "unit-price", "", "unit price applied before the quantity")

	note := &cobra.Command{
		Use:   "note GROUP ITEM TEXT",
		Short: "Set the note of an item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.session.SetItemNote(args[0], args[1], args[2])
			return nil
		},
	}

	cmd.AddCommand(add, rename, del, setValue, setQty, note)
	return cmd
}

func (a *App) noteCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "note", Short: "Edit report notes"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List notes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a.println(renderNotes(a.styles, a.session.Report().Notes()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "add LABEL VALUE",
			Short: "Add a note",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				n := a.session.AddNote(args[0], args[1])
				a.println("added " + n.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set ID LABEL VALUE",
			Short: "Replace the label and value of a note",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				a.session.UpdateNote(args[0], args[1], args[2])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a note",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a.session.DeleteNote(args[0])
				return nil
			},
		},
	)
	return cmd
}

func (a *App) snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "snapshot", Short: "Manage balance sheet snapshots"}

	var note string
	take := &cobra.Command{
		Use:   "take [DAY]",
		Short: "Freeze the balance sheet of a day (default: latest day)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := a.session.Report().LatestPeriod(core.ViewDay)
			if len(args) == 1 {
				day = args[0]
			}
			snap, err := a.session.TakeSnapshot(day, note)
			if err != nil {
				return fmt.Errorf("snapshot %q: %w", day, err)
			}
			a.println(fmt.Sprintf("took %s: net worth %s", snap.ID, export.FormatAmount(snap.NetWorth)))
			return nil
		},
	}
	take.Flags().StringVar(&note, "note", "", "snapshot note")

	cmd.AddCommand(
		take,
		&cobra.Command{
			Use:   "list",
			Short: "List snapshots",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a.println(renderSnapshots(a.styles, a.session.Report().Snapshots()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a snapshot",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a.session.DeleteSnapshot(args[0])
				return nil
			},
		},
	)
	return cmd
}

func (a *App) exportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "export", Short: "Export statements"}

	var (
		vf     viewFlags
		output string
	)
	pdf := &cobra.Command{
		Use:   "pdf",
		Short: "Render a statement as PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := a.session.Report()
			mode, period, err := vf.resolve(r)
			if err != nil {
				return err
			}
			st, err := export.Build(r, mode, period, a.now())
			if err != nil {
				return err
			}
			renderer, err := export.NewPDFRenderer(a.fontPath)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("famreport-%s-%s.pdf", mode, period)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := renderer.Render(f, st); err != nil {
				_ = f.Close()
				return fmt.Errorf("render pdf: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.println("wrote " + output)
			return nil
		},
	}
	vf.register(pdf)
	pdf.Flags().StringVarP(&output, "output", "o", "", "output file")

	cmd.AddCommand(pdf)
	return cmd
}

func (a *App) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate FILE",
		Short: "Import a report JSON file in any historical format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := core.DecodePayload(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			r := a.session.Replace(core.Migrate(p))
			a.println(fmt.Sprintf("imported %d groups, %d years", len(r.Groups()), len(r.Years())))
			return nil
		},
	}
}

func (a *App) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Write the current report to local and remote storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.session.Save()
			return nil
		},
	}
}

func (a *App) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace the report with the default template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.session.Reset()
			return nil
		},
	}
}

func (a *App) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the stored report everywhere",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}
			a.session.DeleteReport(cmd.Context())
			a.println("report deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
