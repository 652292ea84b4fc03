package types

import "testing"

func TestVectorFilterMatches(t *testing.T) {
	doc := VectorDocument{
		ID:     "v1",
		Vector: []float32{1, 2, 3},
		Metadata: map[string]interface{}{
			"workspace_id": "ws1",
			"session_id":   "sess1",
			"tag":          "code",
		},
	}

	cases := []struct {
		name   string
		filter VectorFilter
		want   bool
	}{
		{"no constraints", VectorFilter{}, true},
		{"matching workspace", VectorFilter{WorkspaceID: "ws1"}, true},
		{"mismatched workspace", VectorFilter{WorkspaceID: "ws2"}, false},
		{"matching session", VectorFilter{SessionID: "sess1"}, true},
		{"mismatched session", VectorFilter{SessionID: "sess2"}, false},
		{"matching extra", VectorFilter{Extra: map[string]interface{}{"tag": "code"}}, true},
		{"mismatched extra", VectorFilter{Extra: map[string]interface{}{"tag": "docs"}}, false},
		{"missing extra key", VectorFilter{Extra: map[string]interface{}{"absent": "x"}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.filter.Matches(doc); got != c.want {
				t.Errorf("Matches() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestVectorFilterMatchesMissingWorkspaceMetadata(t *testing.T) {
	doc := VectorDocument{ID: "v1", Vector: []float32{1}}
	f := VectorFilter{WorkspaceID: "ws1"}
	if f.Matches(doc) {
		t.Error("expected no match when metadata lacks workspace_id entirely")
	}
}
