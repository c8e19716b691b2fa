package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompts_Embedded(t *testing.T) {
	p, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Contains(t, p.Step1, "{company_name}")
	assert.Contains(t, p.Step1, "{financials}")
	assert.Contains(t, p.Step2, "{step1_report}")
}

func TestLoadPrompts_CustomDir(t *testing.T) {
	dir := t.TempDir()
	step1 := "会社: {company_name}\n求人: {job_info}\n財務: {financials}\n市場: {market_data}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "step1.txt"), []byte(step1), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "step2.txt"), []byte("初稿: {step1_report}"), 0644))

	p, err := LoadPrompts(dir)
	require.NoError(t, err)
	assert.Equal(t, step1, p.Step1)
}

func TestLoadPrompts_CustomDirMissingFile(t *testing.T) {
	_, err := LoadPrompts(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read template step1.txt")
}

func TestLoadPrompts_RejectsPlaceholderFreeStep1(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "step1.txt"),
		[]byte("固定文のみで {company_name} {job_info} {financials} だけ"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "step2.txt"), []byte("{step1_report}"), 0644))

	_, err := LoadPrompts(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing placeholder {market_data}")
}

func TestLoadPrompts_RejectsPlaceholderFreeStep2(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "step1.txt"),
		[]byte("{company_name} {job_info} {financials} {market_data}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "step2.txt"), []byte("プレースホルダーなし"), 0644))

	_, err := LoadPrompts(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing placeholder {step1_report}")
}
