package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/camunda"
	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/observability"
	"catalog-workers/internal/jobs"
	"catalog-workers/internal/pipeline"
)

var (
	generateTemplate string
	generateProducts string
	generateImages   string
	generateForce    bool
	generateOut      string
	generateWait     bool
	generateInterval time.Duration
)

// generateCmd submits one job and optionally waits for the workbook
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a filled catalog spreadsheet",
	Long: `Submits a template and a product list. In local mode the job runs inside this
process; in zeebe mode a process instance is started and the workers do the rest.

With --wait (the default) the command polls until the job finishes and writes the
workbook to --out.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateTemplate, "template", "t", "", "Template workbook (.xlsx)")
	generateCmd.Flags().StringVarP(&generateProducts, "products", "p", "", "JSON file with the product list")
	generateCmd.Flags().StringVar(&generateImages, "images", "", "JSON file with image URLs keyed by index or SKU")
	generateCmd.Flags().BoolVar(&generateForce, "force", false, "Ignore product memory and regenerate everything")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Output path (defaults to the generated file name)")
	generateCmd.Flags().BoolVar(&generateWait, "wait", true, "Poll until the job is finished")
	generateCmd.Flags().DurationVar(&generateInterval, "interval", 2*time.Second, "Polling interval")
	_ = generateCmd.MarkFlagRequired("template")
	_ = generateCmd.MarkFlagRequired("products")
	rootCmd.AddCommand(generateCmd)
}

func readRequest() (*pipeline.Request, error) {
	tpl, err := os.ReadFile(generateTemplate)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	req := &pipeline.Request{Template: tpl, ForceUpdate: generateForce}

	raw, err := os.ReadFile(generateProducts)
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	if err := json.Unmarshal(raw, &req.Products); err != nil {
		return nil, fmt.Errorf("parse products: %w", err)
	}

	if generateImages != "" {
		raw, err := os.ReadFile(generateImages)
		if err != nil {
			return nil, fmt.Errorf("read images: %w", err)
		}
		req.Images = map[string]catalog.ImageSet{}
		if err := json.Unmarshal(raw, &req.Images); err != nil {
			return nil, fmt.Errorf("parse images: %w", err)
		}
	}
	return req, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req, err := readRequest()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	obs := observability.New("catalogctl")
	defer obs.Shutdown()

	s, a, err := build(ctx, obs)
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		launcher pipeline.Launcher
		local    *pipeline.LocalLauncher
	)
	if s.cfg.Pipeline.Mode == config.ModeZeebe {
		zeebe, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         s.cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(s.cfg.Camunda.RequestTimeout),
		})
		if err != nil {
			return fmt.Errorf("zeebe client: %w", err)
		}
		defer zeebe.Close()
		launcher = pipeline.NewZeebeLauncher(zeebe, s.cfg.Pipeline.ProcessID, s.log)
	} else {
		local = a.LocalLauncher()
		launcher = local
	}

	svc := a.Service(launcher)
	jobID, err := svc.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("job %s rejected: %w", jobID, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Submitted job %s (%d products)\n", jobID, len(req.Products))

	if !generateWait {
		if local != nil {
			local.Wait()
		}
		return printJSON(cmd.OutOrStdout(), map[string]string{"jobId": jobID})
	}

	st, err := svc.Await(ctx, jobID, generateInterval)
	if local != nil {
		local.Wait()
	}
	if err != nil {
		return fmt.Errorf("waiting for job %s: %w", jobID, err)
	}
	return saveWorkbook(ctx, cmd, st)
}

func saveWorkbook(_ context.Context, cmd *cobra.Command, st *jobs.Status) error {
	if st.State != jobs.StateSuccess {
		return fmt.Errorf("job %s failed: %s: %s", st.JobID, st.ErrorType, st.ErrorMessage)
	}
	data, err := base64.StdEncoding.DecodeString(st.FileContent)
	if err != nil {
		return fmt.Errorf("decode workbook: %w", err)
	}

	out := generateOut
	if out == "" {
		out = filepath.Base(st.Filename)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d products, %d bytes)\n", out, st.Products, len(data))
	return nil
}
