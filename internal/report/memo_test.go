package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerline/shopreports/internal/domain/model"
)

func TestFormatMemo(t *testing.T) {
	tests := []struct {
		name  string
		attrs []model.CustomAttribute
		opts  MemoOptions
		want  string
	}{
		{
			name: "plain attributes preserve order",
			attrs: []model.CustomAttribute{
				{Key: "Text", Value: "Happy Birthday"},
				{Key: "Font", Value: "Arial"},
			},
			want: "Text: Happy Birthday\nFont: Arial",
		},
		{
			name: "empty values dropped",
			attrs: []model.CustomAttribute{
				{Key: "Text", Value: "  "},
				{Key: "Font", Value: "Arial"},
			},
			want: "Font: Arial",
		},
		{
			name: "bookkeeping key dropped",
			attrs: []model.CustomAttribute{
				{Key: "has_gpo_flag", Value: "Font Color: Red"},
				{Key: "Font", Value: "Arial"},
			},
			want: "Font: Arial",
		},
		{
			name: "bookkeeping value dropped",
			attrs: []model.CustomAttribute{
				{Key: "Note", Value: "internal has_gpo marker"},
			},
			want: "",
		},
		{
			name: "camel case keys title cased",
			attrs: []model.CustomAttribute{
				{Key: "firstName", Value: "Ada"},
				{Key: "outlineStyle", Value: "Bold"},
			},
			want: "First Name: Ada\nOutline Style: Bold",
		},
		{
			name: "json array value joined",
			attrs: []model.CustomAttribute{
				{Key: "Colors", Value: `["Red","Blue",3]`},
			},
			want: "Colors: Red, Blue, 3",
		},
		{
			name: "json object value pretty printed",
			attrs: []model.CustomAttribute{
				{Key: "Options", Value: `{"size":"L"}`},
			},
			want: "Options: {\n  \"size\": \"L\"\n}",
		},
		{
			name: "json null treated as raw text",
			attrs: []model.CustomAttribute{
				{Key: "Note", Value: "null"},
			},
			want: "Note: null",
		},
		{
			name: "spaced capitals collapsed in values",
			attrs: []model.CustomAttribute{
				{Key: "Text", Value: "I N S I D E"},
			},
			want: "Text: INSIDE",
		},
		{
			name: "variant title prepended",
			attrs: []model.CustomAttribute{
				{Key: "Font", Value: "Arial"},
			},
			opts: MemoOptions{VariantTitle: "Large / Red"},
			want: "Large / Red\nFont: Arial",
		},
		{
			name: "default variant title suppressed",
			attrs: []model.CustomAttribute{
				{Key: "Font", Value: "Arial"},
			},
			opts: MemoOptions{VariantTitle: "Default Title"},
			want: "Font: Arial",
		},
		{
			name: "priority sort orders personalization keys first",
			attrs: []model.CustomAttribute{
				{Key: "Zebra", Value: "last"},
				{Key: "Font", Value: "Arial"},
				{Key: "Apple", Value: "mid"},
				{Key: "First Name", Value: "Ada"},
			},
			opts: MemoOptions{SortByPriority: true},
			want: "First Name: Ada\nFont: Arial\nApple: mid\nZebra: last",
		},
		{
			name:  "no attributes yields empty memo",
			attrs: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMemo(tt.attrs, tt.opts)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFixSpacing(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapses spaced capitals", in: "I N S I D E", want: "INSIDE"},
		{name: "two letters untouched", in: "A B", want: "A B"},
		{name: "embedded run collapsed", in: "engrave O U T S I D E please", want: "engrave OUTSIDE please"},
		{name: "normal text untouched", in: "Happy Birthday", want: "Happy Birthday"},
		{name: "idempotent", in: "INSIDE", want: "INSIDE"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FixSpacing(tt.in))
		})
	}
}

func TestTitleCaseKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "firstName", want: "First Name"},
		{in: "FirstName", want: "First Name"},
		{in: "font", want: "Font"},
		{in: "Font Color", want: "Font Color"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, titleCaseKey(tt.in))
		})
	}
}
