package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshally/pr-agent/pkg/models"
)

const sampleDiff = `diff --git a/app.py b/app.py
index 1111111..2222222 100644
--- a/app.py
+++ b/app.py
@@ -1,3 +1,4 @@
 import os
+import sys
 import json
 import re
@@ -40,2 +41,3 @@ def main():
     run()
-    cleanup()
+    teardown()
+    log_exit()
diff --git a/old.py b/old.py
deleted file mode 100644
index 3333333..0000000
--- a/old.py
+++ /dev/null
@@ -1,2 +0,0 @@
-print("a")
-print("b")
diff --git a/lib/util.py b/lib/helpers.py
similarity index 90%
rename from lib/util.py
rename to lib/helpers.py
index 4444444..5555555 100644
--- a/lib/util.py
+++ b/lib/helpers.py
@@ -5,2 +5,2 @@
 def helper():
-    return 1
+    return 2
`

func TestParseMultiFileDiff(t *testing.T) {
	patches, err := NewParser().Parse(sampleDiff)
	require.NoError(t, err)
	require.Len(t, patches, 3)

	app := patches[0]
	assert.Equal(t, "app.py", app.Path)
	assert.Equal(t, models.ChangeModified, app.Kind)
	require.Len(t, app.Hunks, 2)

	deleted := patches[1]
	assert.Equal(t, models.ChangeDeleted, deleted.Kind)

	renamed := patches[2]
	assert.Equal(t, models.ChangeRenamed, renamed.Kind)
	assert.Equal(t, "lib/helpers.py", renamed.Path)
	assert.Equal(t, "lib/util.py", renamed.OldPath)
}

func TestParseHunkLineNumbering(t *testing.T) {
	patches, err := NewParser().Parse(sampleDiff)
	require.NoError(t, err)

	first := patches[0].Hunks[0]
	assert.Equal(t, 1, first.OldStart)
	assert.Equal(t, 3, first.OldLines)
	assert.Equal(t, 1, first.NewStart)
	assert.Equal(t, 4, first.NewLines)

	require.Len(t, first.Lines, 4)
	assert.Equal(t, models.Line{Kind: models.LineContext, Content: "import os", OldLine: 1, NewLine: 1}, first.Lines[0])
	assert.Equal(t, models.Line{Kind: models.LineAdded, Content: "import sys", NewLine: 2}, first.Lines[1])
	assert.Equal(t, models.Line{Kind: models.LineContext, Content: "import json", OldLine: 2, NewLine: 3}, first.Lines[2])

	second := patches[0].Hunks[1]
	assert.Equal(t, "def main():", second.Header)
	require.Len(t, second.Lines, 4)
	assert.Equal(t, models.LineContext, second.Lines[0].Kind)
	assert.Equal(t, 41, second.Lines[0].NewLine)
	assert.Equal(t, models.LineRemoved, second.Lines[1].Kind)
	assert.Equal(t, 41, second.Lines[1].OldLine)
	assert.Equal(t, 0, second.Lines[1].NewLine, "removed lines have no new-file number")
	assert.Equal(t, models.Line{Kind: models.LineAdded, Content: "    teardown()", NewLine: 42}, second.Lines[2])
	assert.Equal(t, models.Line{Kind: models.LineAdded, Content: "    log_exit()", NewLine: 43}, second.Lines[3])
}

func TestParseEmptyDiff(t *testing.T) {
	patches, err := NewParser().Parse("")
	require.NoError(t, err)
	assert.Nil(t, patches)
}

func TestParseNoNewlineMarker(t *testing.T) {
	patch := `@@ -1,1 +1,1 @@
-old
+new
\ No newline at end of file
`
	fp, err := NewParser().ParseFilePatch("f.txt", "", models.ChangeModified, patch)
	require.NoError(t, err)
	require.Len(t, fp.Hunks, 1)
	assert.Len(t, fp.Hunks[0].Lines, 2, "marker line must not become a diff line")
}

func TestParseFilePatchSingleLineHunkHeader(t *testing.T) {
	patch := `@@ -1 +1 @@
-a
+b
`
	fp, err := NewParser().ParseFilePatch("f.txt", "", models.ChangeModified, patch)
	require.NoError(t, err)
	require.Len(t, fp.Hunks, 1)
	assert.Equal(t, 1, fp.Hunks[0].OldLines)
	assert.Equal(t, 1, fp.Hunks[0].NewLines)
}

func TestParseFilePatchEmptyPatch(t *testing.T) {
	// Binary files and pure renames come back from providers with no patch
	// text at all.
	fp, err := NewParser().ParseFilePatch("logo.png", "", models.ChangeAdded, "")
	require.NoError(t, err)
	assert.Empty(t, fp.Hunks)
}
