package fields

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/logbook-automation/pkg/browser/browsertest"
	"github.com/logbook-automation/pkg/logger"
	"github.com/logbook-automation/pkg/resolver"
	"github.com/logbook-automation/pkg/timing"
)

func newOperator(t *testing.T) (*Operator, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromCore(core)
	r := resolver.New(timing.Instant(), log).WithInterval(time.Millisecond)
	return New(r, timing.Instant(), 20*time.Millisecond, log), logs
}

func TestFillTextVerified(t *testing.T) {
	op, _ := newOperator(t)
	page := browsertest.NewPage()
	input := browsertest.Input("old")
	page.Set("#Lokasi", input)

	res := op.FillText(context.Background(), page, "location", []string{"#Lokasi"}, "Graha X")
	assert.True(t, res.OK())
	assert.True(t, res.Verified)
	assert.Equal(t, "#Lokasi", res.Selector)
	assert.Equal(t, "Graha X", input.CurrentValue())
}

func TestFillTextReadBackMismatchWarnsButSucceeds(t *testing.T) {
	op, logs := newOperator(t)
	page := browsertest.NewPage()
	input := browsertest.Input("")
	input.Reformat = func(string) string { return "2025-03-01" }
	page.Set("#Tanggal", input)

	res := op.FillText(context.Background(), page, "date", []string{"#Tanggal"}, "01/03/2025")
	assert.True(t, res.OK(), "a mismatch is not a failure")
	assert.False(t, res.Verified, "set is distinguished from verified-set")

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).FilterMessageSnippet("read-back mismatch")
	assert.Equal(t, 1, warnings.Len())
}

func TestFillTextFailures(t *testing.T) {
	op, _ := newOperator(t)
	page := browsertest.NewPage()

	res := op.FillText(context.Background(), page, "start", []string{"#JamMulai"}, "08:30")
	assert.Equal(t, Soft, res.Status)

	broken := browsertest.Input("")
	broken.FillErr = errors.New("element is read-only")
	page.Set("#JamMulai", broken)
	res = op.FillText(context.Background(), page, "start", []string{"#JamMulai"}, "08:30")
	assert.Equal(t, Hard, res.Status)
	assert.Error(t, res.Err())
}

func TestSelectOptionValueThenLabel(t *testing.T) {
	op, _ := newOperator(t)
	options := []browsertest.Option{
		{Value: "1", Label: "Bimbingan"},
		{Value: "2", Label: "Ujian"},
		{Value: "3", Label: "Berita Acara Kegiatan"},
	}

	tests := []struct {
		name   string
		value  string
		label  string
		status Status
		want   string
	}{
		{"by value", "3", "Kegiatan", Done, "3"},
		{"falls back to label", "99", "Ujian", Done, "2"},
		{"neither", "99", "Nope", Soft, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage()
			sel := browsertest.Select(options...)
			sel.Hidden = true
			page.Set("#JenisKegiatan", sel)

			res := op.SelectOption(context.Background(), page, "activity_kind", []string{"#JenisKegiatan"}, tt.value, tt.label)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.want, sel.Selected())
		})
	}
}

func TestCheckOptionByValue(t *testing.T) {
	op, _ := newOperator(t)
	page := browsertest.NewPage()
	hybrid, offline, online := browsertest.Radio("1"), browsertest.Radio("2"), browsertest.Radio("3")
	page.Set("input[name='ModeKegiatan']", hybrid, offline, online)

	res := op.CheckOption(context.Background(), page, "mode", []string{"input[name='ModeKegiatan']"}, "2")
	require.True(t, res.OK())
	assert.False(t, hybrid.Checked())
	assert.True(t, offline.Checked())
	assert.False(t, online.Checked())

	res = op.CheckOption(context.Background(), page, "mode", []string{"input[name='ModeKegiatan']"}, "9")
	assert.Equal(t, Soft, res.Status)
}

func TestUploadFileMissingPathTouchesNothing(t *testing.T) {
	op, _ := newOperator(t)
	page := browsertest.NewPage()
	page.Set("input[type='file']", browsertest.Hidden())

	res := op.UploadFile(context.Background(), page, "evidence", []string{"input[type='file']"}, filepath.Join(t.TempDir(), "missing.jpg"))
	assert.False(t, res.OK())
	assert.Equal(t, Hard, res.Status)
	assert.Zero(t, page.Queries(), "no DOM interaction")
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "evidence.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("jpeg-bytes"), 0644))
	empty := filepath.Join(dir, "empty.jpg")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	t.Run("confirmed", func(t *testing.T) {
		op, _ := newOperator(t)
		page := browsertest.NewPage()
		input := browsertest.Hidden()
		page.Set("#FileBukti", input)

		res := op.UploadFile(context.Background(), page, "evidence", []string{"#FileBukti"}, photo)
		require.True(t, res.OK(), res.Reason)
		assert.True(t, res.Verified)
		require.Len(t, input.Files(), 1)
		assert.Equal(t, "evidence.jpg", filepath.Base(input.Files()[0]))
		assert.Len(t, input.Evals(), 2, "events dispatched, then files read back")
	})

	t.Run("not confirmed", func(t *testing.T) {
		op, _ := newOperator(t)
		page := browsertest.NewPage()
		input := browsertest.Hidden()
		input.IgnoreFiles = true
		page.Set("#FileBukti", input)

		res := op.UploadFile(context.Background(), page, "evidence", []string{"#FileBukti"}, photo)
		assert.Equal(t, Soft, res.Status)
		assert.Contains(t, res.Reason, "evidence.jpg")
	})

	t.Run("empty file", func(t *testing.T) {
		op, _ := newOperator(t)
		page := browsertest.NewPage()
		res := op.UploadFile(context.Background(), page, "evidence", []string{"#FileBukti"}, empty)
		assert.Equal(t, Hard, res.Status)
		assert.Zero(t, page.Queries())
	})
}
