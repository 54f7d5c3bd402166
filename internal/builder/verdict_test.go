package builder

import "testing"

func TestVerdictString(t *testing.T) {
	tests := []struct {
		verdict Verdict
		want    string
	}{
		{VerdictOK, "ok"},
		{VerdictNothingDone, "nothing_done"},
		{VerdictAdditionalPassRequired, "additional_pass_required"},
		{VerdictChunkRebuildRequired, "chunk_rebuild_required"},
		{VerdictAbort, "abort"},
		{Verdict(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.verdict.String(); got != tt.want {
			t.Errorf("Verdict(%d).String() = %q, want %q", tt.verdict, got, tt.want)
		}
	}
}

func TestVerdictSuccessful(t *testing.T) {
	for _, v := range []Verdict{VerdictOK, VerdictNothingDone, VerdictAdditionalPassRequired, VerdictChunkRebuildRequired} {
		if !v.Successful() {
			t.Errorf("%v.Successful() = false, want true", v)
		}
	}
	if VerdictAbort.Successful() {
		t.Error("abort must not count as successful")
	}
}
