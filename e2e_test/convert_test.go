package e2e_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jsphweid/engrave/cmd"
	"github.com/jsphweid/engrave/lilypond"
	"github.com/jsphweid/engrave/model"
	"github.com/jsphweid/engrave/parser"
	"github.com/stretchr/testify/assert"
)

func convert(t *testing.T, text string) string {
	music, err := parser.ParseMusic(text)
	if err != nil {
		t.Fatalf("parse of %q failed: %v", text, err)
	}
	var buf bytes.Buffer
	if err := lilypond.Export(&buf, music); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	return buf.String()
}

func TestEmptyScoreE2E(t *testing.T) {
	assert := assert.New(t)
	out := convert(t, "")
	assert.Contains(out, `\version "2.22.1"`)
	assert.Contains(out, `\new PianoStaff{`)
	assert.NotContains(out, `\new Staff`)
}

func TestSingleNoteE2E(t *testing.T) {
	out := convert(t, "C,")
	assert.Contains(t, out, `c' 4 r2.`)
}

func TestHeldNoteWithTempoE2E(t *testing.T) {
	out := convert(t, "%120%\nC,-,-,-,")
	assert.Contains(t, out, `\tempo 4=120 c' 1`)
}

func TestMacroTripletsE2E(t *testing.T) {
	out := convert(t, "!a: CDE,!\n*a**a*")
	assert.Equal(t, strings.Count(out, `\tuplet 3/2 {`), 2)
}

func TestThreeFourE2E(t *testing.T) {
	assert := assert.New(t)
	out := convert(t, "%3/4%\nC,E,G,")
	assert.Contains(out, `\time 3/4`)
	assert.Contains(out, `c' 4 e' 4 g' 4`)
	assert.NotContains(out, `~`)
}

func TestSevenEightE2E(t *testing.T) {
	assert := assert.New(t)
	out := convert(t, "%7/8%\nC,D,E,F,G,A,B,")
	assert.Contains(out, `\time 7/8`)
	assert.Contains(out, `c' 8 d' 8 e' 8 f' 8 g' 8 a' 8 b' 8`)
}

func TestConvertCommandE2E(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "song.egv")
	out := filepath.Join(dir, "song.ly")
	assert.NoError(os.WriteFile(in, []byte("%3/4%C,E,G,"), 0644))

	assert.NoError(cmd.Convert(in, out))

	data, err := os.ReadFile(out)
	assert.NoError(err)
	assert.Contains(string(data), `\time 3/4`)
}

func TestConvertCommandReportsErrors(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.egv")
	out := filepath.Join(dir, "bad.ly")
	assert.NoError(os.WriteFile(in, []byte("H,"), 0644))

	err := cmd.Convert(in, out)
	assert.Error(err)
	assert.Contains(err.Error(), "at line 1, column 1")
}

func createConvertReqBody(t *testing.T, text string) io.Reader {
	data, err := json.Marshal(model.ConvertRequestBody{Text: text})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(data)
}

func TestConvertHandlerE2E(t *testing.T) {
	assert := assert.New(t)
	req := httptest.NewRequest(http.MethodPost, "/convert", createConvertReqBody(t, "C,D,E,F,"))
	w := httptest.NewRecorder()
	cmd.HandleConvert(w, req)

	resp := w.Result()
	respBody, _ := io.ReadAll(resp.Body)
	assert.Equal(resp.StatusCode, 200)

	var res model.ConvertResponse
	assert.NoError(json.Unmarshal(respBody, &res))
	assert.NotEmpty(res.Id)
	assert.Contains(res.Lilypond, `c' 4 d' 4 e' 4 f' 4`)
}

func TestConvertHandlerBadInputE2E(t *testing.T) {
	assert := assert.New(t)
	req := httptest.NewRequest(http.MethodPost, "/convert", createConvertReqBody(t, "{C,"))
	w := httptest.NewRecorder()
	cmd.HandleConvert(w, req)

	resp := w.Result()
	respBody, _ := io.ReadAll(resp.Body)
	assert.Equal(resp.StatusCode, 400)

	var res model.ErrorResponse
	assert.NoError(json.Unmarshal(respBody, &res))
	assert.Contains(res.Error, "not closed")
}
