package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hirelens-jp/research-cli/internal/financial"
	"github.com/hirelens-jp/research-cli/internal/model"
	"github.com/hirelens-jp/research-cli/internal/report"
	"github.com/hirelens-jp/research-cli/internal/store"
)

const minJobInfoRunes = 50

var (
	runJobFile string
	runJobText string
)

var runCmd = &cobra.Command{
	Use:   "run <company-name>",
	Short: "Generate a recruitment strategy report for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		companyName := args[0]

		jobInfo, err := resolveJobInfo()
		if err != nil {
			return err
		}
		if utf8.RuneCountInString(companyName) < 2 {
			return eris.New("company name too short")
		}
		if utf8.RuneCountInString(jobInfo) < minJobInfoRunes {
			return eris.Errorf("job info too short, need at least %d characters", minJobInfoRunes)
		}

		llm := newLLMClient()
		if llm == nil {
			return eris.New("anthropic.key is required for report generation")
		}
		search := newSearchClient()
		if search == nil {
			zap.L().Warn("serpapi.key not set, financial and market searches will be skipped")
		}

		prompts, err := report.LoadPrompts(cfg.Report.PromptDir)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, companyName, digest(jobInfo))
		if err != nil {
			return err
		}
		started := time.Now()

		result := &model.RunResult{}
		fail := func(stage string, cause error) error {
			result.DurationMS = time.Since(started).Milliseconds()
			if saveErr := st.SaveResult(ctx, run.ID, model.RunStatusFailed, result); saveErr != nil {
				zap.L().Error("save failed run", zap.Error(saveErr))
			}
			return eris.Wrap(cause, stage)
		}

		// Financials
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusFinancials); err != nil {
			return err
		}
		chain := buildChain(search, llm)
		record, err := chain.Fetch(ctx, companyName)
		if err != nil {
			var fe *financial.Error
			switch {
			case errors.As(err, &fe) && fe.UseEstimation:
				zap.L().Info("using industry estimation",
					zap.String("company", companyName),
					zap.String("reason", fe.Message))
				record = financial.Estimate(companyName, jobInfo)
			case errors.As(err, &fe) && fe.Kind != financial.KindConfiguration:
				// Report generation continues without financials.
				zap.L().Warn("financial data unavailable, continuing",
					zap.String("company", companyName),
					zap.Error(err))
				result.FinancialErr = err.Error()
			default:
				return fail("fetch financials", err)
			}
		}
		result.Financials = record

		// Market context
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusMarket); err != nil {
			return err
		}
		researcher := report.NewMarketResearcher(search, llm, cfg.Anthropic.HaikuModel)
		industry := researcher.ExtractIndustryKeyword(ctx, jobInfo)
		marketData := researcher.SearchMarketData(ctx, industry)
		result.Industry = industry

		// Report
		gen := report.NewGenerator(llm, cfg.Anthropic.SonnetModel,
			int64(cfg.Report.MaxTokens), cfg.Report.MarketSnippet, prompts)
		in := report.Input{
			CompanyName:  companyName,
			JobInfo:      jobInfo,
			Financials:   record,
			FinancialErr: result.FinancialErr,
			MarketData:   marketData,
		}

		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusDrafting); err != nil {
			return err
		}
		final, err := generateReport(ctx, st, run.ID, gen, in)
		if err != nil {
			return fail("generate report", err)
		}

		result.Report = final
		result.DurationMS = time.Since(started).Milliseconds()
		if err := st.SaveResult(ctx, run.ID, model.RunStatusComplete, result); err != nil {
			return err
		}

		reportPath, err := writeArtifacts(companyName, final)
		if err != nil {
			return err
		}

		zap.L().Info("report complete",
			zap.String("run_id", run.ID),
			zap.String("company", companyName),
			zap.String("industry", industry),
			zap.Int64("duration_ms", result.DurationMS))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"run_id":      run.ID,
			"company":     companyName,
			"industry":    industry,
			"report_path": reportPath,
			"duration_ms": result.DurationMS,
		})
	},
}

// generateReport runs the draft and revision passes, recording the
// status transition between them.
func generateReport(ctx context.Context, st store.Store, runID string, gen *report.Generator, in report.Input) (string, error) {
	draft, err := gen.Draft(ctx, in)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(draft) < 300 {
		return "", eris.Errorf("draft too short (%d runes)", utf8.RuneCountInString(draft))
	}

	if err := st.UpdateRunStatus(ctx, runID, model.RunStatusRevising); err != nil {
		return "", err
	}
	return gen.Revise(ctx, draft)
}

// writeArtifacts saves the report as markdown plus a JSON envelope and
// returns the markdown path.
func writeArtifacts(companyName, finalReport string) (string, error) {
	if err := os.MkdirAll(cfg.Report.OutDir, 0o755); err != nil {
		return "", eris.Wrap(err, "create output dir")
	}

	stamp := time.Now().Format("20060102_1504")
	base := fmt.Sprintf("%s_分析_%s", companyName, stamp)

	mdPath := filepath.Join(cfg.Report.OutDir, base+".md")
	if err := os.WriteFile(mdPath, []byte(finalReport), 0o644); err != nil {
		return "", eris.Wrap(err, "write report markdown")
	}

	envelope, err := json.MarshalIndent(map[string]string{
		"company":      companyName,
		"generated_at": time.Now().Format(time.RFC3339),
		"report":       finalReport,
	}, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "marshal report json")
	}
	jsonPath := filepath.Join(cfg.Report.OutDir, base+".json")
	if err := os.WriteFile(jsonPath, envelope, 0o644); err != nil {
		return "", eris.Wrap(err, "write report json")
	}

	return mdPath, nil
}

func resolveJobInfo() (string, error) {
	if runJobText != "" {
		return runJobText, nil
	}
	if runJobFile == "" {
		return "", eris.New("one of --job or --job-file is required")
	}
	b, err := os.ReadFile(runJobFile)
	if err != nil {
		return "", eris.Wrap(err, "read job file")
	}
	return string(b), nil
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

func init() {
	runCmd.Flags().StringVar(&runJobFile, "job-file", "", "path to a file containing the job posting")
	runCmd.Flags().StringVar(&runJobText, "job", "", "job posting text")
	rootCmd.AddCommand(runCmd)
}
