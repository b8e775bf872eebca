package cli_test

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGlobal(t *testing.T, path, content string) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		t.Fatal(err)
	}

	err = os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		t.Fatal(err)
	}
}

// confirmScript is the optimistic create-then-confirm flow for one comment.
const confirmScript = `# report r-42 with an empty comment list
{"op":"store_report","report":{"id":"r-42","title":"Bache en Av. Juárez","comments_count":0}}
{"op":"set_comment_list","report_id":"r-42","comments":[]}
{"op":"create_pending_comment","bind":"draft","comment":{"id":"tmp-1","report_id":"r-42","body":"Sigue igual"}}
{"op":"confirm","kind":"comment","id":"$draft","server_id":"c-900","report_id":"r-42"}
{"op":"advance","by":"1s"}
`
