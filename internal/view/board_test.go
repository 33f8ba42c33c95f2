package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"librarydesk/internal/entity"
)

func TestPanel_Filter(t *testing.T) {
	p := Panel{Rows: []Row{
		{ID: "b1", Text: "Dune ISBN: 1 Author: Frank Herbert"},
		{ID: "b2", Text: "Foundation ISBN: 2 Author: Isaac Asimov"},
	}}

	tests := []struct {
		name string
		term string
		want []string
	}{
		{"empty keeps all", "", []string{"b1", "b2"}},
		{"case insensitive", "DUNE", []string{"b1"}},
		{"matches any field", "asimov", []string{"b2"}},
		{"no match", "tolkien", nil},
		{"surrounding space ignored", "  herbert ", []string{"b1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range p.Filter(tt.term) {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseName(t *testing.T) {
	n, ok := ParseName(" Loans ")
	assert.True(t, ok)
	assert.Equal(t, Loans, n)

	_, ok = ParseName("settings")
	assert.False(t, ok)
}

func TestBoard_Defaults(t *testing.T) {
	b := NewBoard()
	assert.Equal(t, Dashboard, b.Active())
	assert.Equal(t, StatusChecking, b.Status())
	assert.False(t, b.Panel(Books).Loaded)

	b.Put(Panel{View: Books})
	assert.True(t, b.Panel(Books).Loaded)
}

func TestRenderBooks_EscapesMarkup(t *testing.T) {
	p := RenderBooks(nil)
	assert.Empty(t, p.Rows)

	p = RenderBooks([]entity.Book{{ID: "x", Title: "<script>", Copies: 1, AvailableCopies: 1}})
	assert.NotContains(t, string(p.Rows[0].HTML), "<script>")
	assert.Contains(t, string(p.Rows[0].HTML), "&lt;script&gt;")
}
