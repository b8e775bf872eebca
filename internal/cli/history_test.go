package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func Test_History_Round_Trips_When_Written_Then_Read(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".civicache_history")

	data, err := readHistory(path)
	require.NoError(t, err)
	require.Nil(t, data)

	want := "stats\nadvance 1s\n"
	require.NoError(t, writeHistory(path, []byte(want)))

	data, err = readHistory(path)
	require.NoError(t, err)

	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	_, err = os.Stat(path + ".lock")
	require.NoError(t, err)
}

func Test_History_Fails_When_Directory_Missing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nope", ".civicache_history")

	_, err := readHistory(path)
	require.ErrorContains(t, err, "open history lock")
}

func Test_CompleteShell_Completes_Commands_And_Ops(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want []string
	}{
		{line: "st", want: []string{"stats"}},
		{line: "ST", want: []string{"stats"}},
		{line: "e", want: []string{"expire", "exit"}},
		{line: `{"op":"create_pending_`, want: []string{`{"op":"create_pending_comment"`, `{"op":"create_pending_report"`}},
		{line: "zzz", want: nil},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, completeShell(tt.line)); diff != "" {
			t.Errorf("completeShell(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}
