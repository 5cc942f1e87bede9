package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ah-its-andy/tengine/internal/api"
	"github.com/ah-its-andy/tengine/internal/db"
	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/transform"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var transformCmd = &cobra.Command{
	Use:   "transform SOURCE TARGET",
	Short: "Run a single transform",
	Long: `transform converts SOURCE into TARGET with the transformer chosen for the
mimetype pair, or the one named by --transform-name. The source mimetype is
detected from content when not given.

Example:
  tengine transform quick.pdf quick.png --target-mimetype image/png -o width=100 -o height=100`,
	Args: cobra.ExactArgs(2),
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().String("source-mimetype", "", "source mimetype (detected when empty)")
	transformCmd.Flags().String("target-mimetype", "", "target mimetype")
	transformCmd.Flags().String("transform-name", "", "transformer to use")
	transformCmd.Flags().StringToStringP("option", "o", nil, "transform option as key=value, repeatable")
	_ = transformCmd.MarkFlagRequired("target-mimetype")

	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	source, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	target, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}
	sourceMimetype, _ := cmd.Flags().GetString("source-mimetype")
	targetMimetype, _ := cmd.Flags().GetString("target-mimetype")
	transformName, _ := cmd.Flags().GetString("transform-name")
	options, _ := cmd.Flags().GetStringToString("option")

	start := time.Now()
	entry := &db.TransformLog{
		RequestID:      uuid.NewString(),
		Origin:         "cli",
		TargetMimetype: targetMimetype,
		SourceFile:     source,
		Options:        db.FormatOptions(options),
		CreatedAt:      start,
	}
	defer func() {
		entry.DurationMs = time.Since(start).Milliseconds()
		if a.db != nil {
			if err := a.db.InsertTransformLog(entry); err != nil {
				logging.L().Warn("failed to record transform", "error", err)
			}
		}
	}()

	fi, err := os.Stat(source)
	if err != nil {
		return failed(entry, err)
	}
	entry.SourceSize = fi.Size()
	if sourceMimetype == "" {
		if sourceMimetype, err = transform.DetectMimetype(source); err != nil {
			return failed(entry, err)
		}
	}
	entry.SourceMimetype = sourceMimetype

	res, err := a.engine.Transform(cmd.Context(), transform.Request{
		TransformName:  transformName,
		SourceFile:     source,
		TargetFile:     target,
		SourceMimetype: sourceMimetype,
		TargetMimetype: targetMimetype,
		Options:        options,
	})
	entry.Transformer = res.Transformer
	if err != nil {
		return failed(entry, err)
	}
	if fi, err := os.Stat(target); err == nil {
		entry.TargetSize = fi.Size()
	}
	entry.Status = db.StatusSuccess
	entry.StatusCode = http.StatusOK
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s, %s)\n", source, target, res.Transformer, res.Duration.Round(time.Millisecond))
	return nil
}

func failed(entry *db.TransformLog, err error) error {
	entry.Status = db.StatusFailed
	entry.StatusCode = api.StatusCode(err)
	entry.ErrorMessage = err.Error()
	return err
}
