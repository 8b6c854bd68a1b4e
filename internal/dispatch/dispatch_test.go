package dispatch

import "testing"

func testTable() Table {
	return NewTable([]Entry{
		{Keyword: "add", Name: "add"},
		{Keyword: "answer", Name: "answer"},
		{Keyword: "class", Name: "class"},
		{Keyword: "debug", Name: "debug"},
		{Keyword: "del", Name: "del"},
		{Keyword: "delete", Name: "del"},
		{Keyword: "send", Name: "send"},
		{Keyword: "server", Name: "server"},
		{Keyword: "zone", Name: "zone"},
	})
}

func TestFind_ExactAndPrefix(t *testing.T) {
	tbl := testTable()
	tests := []struct {
		line     string
		wantName string
		wantRes  string
		wantOK   bool
	}{
		{"server ns1.example.com", "server", "ns1.example.com", true},
		{"send", "send", "", true},
		{"del example.com A", "del", "example.com A", true},
		{"delete example.com A", "del", "example.com A", true},
		{"DEBUG", "debug", "", true},
		{"zulu", "", "", false},
		{"sendx", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, res, ok := Find(tbl, tt.line)
			if ok != tt.wantOK {
				t.Fatalf("Find(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if name != tt.wantName || res != tt.wantRes {
				t.Errorf("Find(%q) = (%q, %q), want (%q, %q)", tt.line, name, res, tt.wantName, tt.wantRes)
			}
		})
	}
}

func TestNewTable_SortsByKeyword(t *testing.T) {
	tbl := NewTable([]Entry{
		{Keyword: "zone", Name: "zone"},
		{Keyword: "add", Name: "add"},
		{Keyword: "class", Name: "class"},
	})
	for i := 1; i < len(tbl); i++ {
		if tbl[i-1].Keyword > tbl[i].Keyword {
			t.Fatalf("table not sorted: %q before %q", tbl[i-1].Keyword, tbl[i].Keyword)
		}
	}
}
