package typedef

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		sig    string
		params []GenericParameter
		rest   string
	}{
		{"(I)V", nil, "(I)V"},
		{"<T:Ljava/lang/Object;>(TT;)TT;", []GenericParameter{{Name: "T", ClassBound: "Ljava/lang/Object;"}}, "(TT;)TT;"},
		{
			"<K:Ljava/lang/Number;:Ljava/io/Serializable;V::Ljava/util/List<TK;>;>(TK;)TV;",
			[]GenericParameter{
				{Name: "K", ClassBound: "Ljava/lang/Number;", InterfaceBounds: []string{"Ljava/io/Serializable;"}},
				{Name: "V", InterfaceBounds: []string{"Ljava/util/List<TK;>;"}},
			},
			"(TK;)TV;",
		},
		{"<A:TB;B:[I>()V", []GenericParameter{{Name: "A", ClassBound: "TB;"}, {Name: "B", ClassBound: "[I"}}, "()V"},
	}
	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			params, rest, err := parseSignature(tt.sig)
			if err != nil {
				t.Fatalf("parseSignature: %v", err)
			}
			if diff := cmp.Diff(tt.params, params); diff != "" {
				t.Errorf("params (-want +got):\n%s", diff)
			}
			if rest != tt.rest {
				t.Errorf("rest: got %q, want %q", rest, tt.rest)
			}
			if got := renderSignature(params, rest); got != tt.sig {
				t.Errorf("renderSignature: got %q, want %q", got, tt.sig)
			}
		})
	}
}

func TestParseSignatureInvalid(t *testing.T) {
	for _, sig := range []string{"<T:Ljava/lang/Object;", "<:Ljava/lang/Object;>()V", "<T:Ljava/lang/Object>()V", "<T:Q>()V"} {
		if _, _, err := parseSignature(sig); err == nil {
			t.Errorf("parseSignature(%q): expected error", sig)
		}
	}
}
