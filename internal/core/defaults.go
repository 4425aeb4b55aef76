package core

// Default returns the built-in starter report. Reset replaces the current
// report with it.
func Default() Report {
	return Migrate(Payload{
		Years:  []string{"2025"},
		Months: []string{"2025-01", "2025-02"},
		Days:   []string{"2025-01-01"},
		Notes: []Note{
			{ID: "note_1", Label: "养老保险总缴纳额", Value: "200000"},
		},
		FlowGroups: []Group{
			{ID: "income", Type: Income, Name: "收入 (Income)", Items: []Item{
				priced("inc_1", "工资收入", map[string]float64{"2025": 240000, "2025-01": 20000, "2025-02": 20000}),
				priced("inc_2", "公积金收入", map[string]float64{"2025": 6000, "2025-02": 500}),
				priced("inc_3", "股票投资收入", nil),
				priced("inc_4", "期货投资收入", nil),
				priced("inc_5", "黄金投资收入", nil),
				priced("inc_6", "白银投资收入", nil),
				priced("inc_7", "铑投资收入", nil),
				priced("inc_8", "加密货币投资收入", nil),
				priced("inc_9", "其他投资收入", nil),
			}},
			{ID: "expense", Type: Expense, Name: "支出 (Expenses)", Items: []Item{
				priced("exp_1", "房贷/房租", map[string]float64{"2025": 60000, "2025-01": 5000, "2025-02": 5000}),
				priced("exp_2", "餐饮美食", map[string]float64{"2025": 36000, "2025-01": 3000, "2025-02": 2800}),
				priced("exp_3", "交通出行", map[string]float64{"2025": 9600, "2025-02": 800}),
			}},
		},
		BalanceGroups: []Group{
			{ID: "asset", Type: Asset, Name: "资产 (Assets)", Items: []Item{
				onDay("ast_cash", "现金", 20000),
				onDay("ast_recv", "应收借款", 50000),
				onDay("ast_int", "累计利息", 500),
				onDay("ast_gold", "黄金资产", 50000),
				onDay("ast_stock", "股票资产", 110000),
				onDay("ast_rhod", "铑实物", 30000),
				onDay("ast_crypto", "加密货币", 38000),
				onDay("ast_fund", "公积金", 78000),
				onDay("ast_savegold", "积存金", 15000),
				onDay("ast_futures", "期货资产", 24000),
			}},
			{ID: "liability", Type: Liability, Name: "负债 (Liabilities)", Items: []Item{
				onDay("lia_card", "信用卡未还", 2500),
				onDay("lia_debt", "欠款", 50000),
			}},
		},
	})
}

// priced builds a leaf whose values were entered at quantity one.
func priced(id, name string, values map[string]float64) Item {
	it := Item{ID: id, Name: name, Values: map[string]float64{}}
	for p, v := range values {
		it = it.WithUnitPrice(p, v)
	}
	return it
}

func onDay(id, name string, v float64) Item {
	return priced(id, name, map[string]float64{"2025-01-01": v})
}
