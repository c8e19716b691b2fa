// Package report generates the two-stage recruitment strategy report and
// gathers the market context that feeds it.
package report

import (
	"embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

//go:embed templates/*.txt
var templateFS embed.FS

// Prompts holds the two report prompt templates. The templates are
// committed verbatim and never edited programmatically; generation only
// fills their placeholders.
type Prompts struct {
	Step1 string
	Step2 string
}

// step1Placeholders must all appear in a step1 template for it to be usable.
var step1Placeholders = []string{"{company_name}", "{job_info}", "{financials}", "{market_data}"}

// LoadPrompts returns the embedded templates, or the operator's own
// templates when promptDir is set. A template missing any of its
// placeholders is rejected: generation would silently produce a report
// about nothing.
func LoadPrompts(promptDir string) (*Prompts, error) {
	step1, err := loadTemplate(promptDir, "step1.txt")
	if err != nil {
		return nil, err
	}
	step2, err := loadTemplate(promptDir, "step2.txt")
	if err != nil {
		return nil, err
	}

	for _, ph := range step1Placeholders {
		if !strings.Contains(step1, ph) {
			return nil, eris.Errorf("report: step1 template missing placeholder %s", ph)
		}
	}
	if !strings.Contains(step2, "{step1_report}") {
		return nil, eris.New("report: step2 template missing placeholder {step1_report}")
	}

	return &Prompts{Step1: step1, Step2: step2}, nil
}

func loadTemplate(promptDir, name string) (string, error) {
	if promptDir != "" {
		b, err := os.ReadFile(filepath.Join(promptDir, name))
		if err != nil {
			return "", eris.Wrapf(err, "report: read template %s", name)
		}
		return string(b), nil
	}

	b, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", eris.Wrapf(err, "report: read embedded template %s", name)
	}
	return string(b), nil
}
