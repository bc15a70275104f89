package repository

import "testing"

func TestPeriodExpr(t *testing.T) {
	tests := []struct {
		dialect, groupBy, want string
	}{
		{DialectPostgres, GroupByMonth, "TO_CHAR(DATE_TRUNC('month', d), 'YYYY-MM-DD')"},
		{DialectPostgres, GroupByWeek, "TO_CHAR(DATE_TRUNC('week', d), 'YYYY-MM-DD')"},
		{DialectMySQL, GroupByWeek, "DATE_FORMAT(DATE_SUB(d, INTERVAL WEEKDAY(d) DAY), '%Y-%m-%d')"},
		{DialectMySQL, GroupByMonth, "DATE_FORMAT(d, '%Y-%m-01')"},
		{DialectMySQL, GroupByQuarter, "DATE_FORMAT(MAKEDATE(YEAR(d), 1) + INTERVAL (QUARTER(d) - 1) QUARTER, '%Y-%m-%d')"},
		{DialectMySQL, GroupByYear, "DATE_FORMAT(d, '%Y-01-01')"},
	}
	for _, tt := range tests {
		got, err := periodExpr(tt.dialect, tt.groupBy, "d")
		if err != nil {
			t.Fatalf("%s/%s: %v", tt.dialect, tt.groupBy, err)
		}
		if got != tt.want {
			t.Errorf("%s/%s = %q, want %q", tt.dialect, tt.groupBy, got, tt.want)
		}
	}

	if _, err := periodExpr(DialectPostgres, "day'); DROP TABLE purchases; --", "d"); err == nil {
		t.Error("expected unsupported period to be rejected")
	}
}

func TestSortColumns(t *testing.T) {
	cols := sortColumns("entry_date")
	for _, key := range []string{"entry_date", "entryDate", "created_at", "createdAt", "updatedAt"} {
		if _, ok := cols[key]; !ok {
			t.Errorf("missing sort key %q", key)
		}
	}
	if cols["entryDate"] != "entry_date" {
		t.Errorf("entryDate maps to %q", cols["entryDate"])
	}
}

func TestListFilterOffset(t *testing.T) {
	if got := (ListFilter{Page: 3, Limit: 20}).Offset(); got != 40 {
		t.Errorf("offset = %d, want 40", got)
	}
	if got := (ListFilter{Page: 0, Limit: 20}).Offset(); got != 0 {
		t.Errorf("offset = %d, want 0", got)
	}
	u := (ListFilter{Page: 2, Limit: 10, Search: "x"}).Unpaged()
	if u.Page != 0 || u.Limit != 0 || u.Search != "x" {
		t.Errorf("unpaged = %+v", u)
	}
}
