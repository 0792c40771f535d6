package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/attest/internal/api"
	"github.com/JaimeStill/attest/internal/config"
	"github.com/JaimeStill/attest/internal/infrastructure"
	"github.com/JaimeStill/attest/internal/validations"
	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/rules"
)

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

// session is a started infrastructure plus the validation system built on it.
type session struct {
	infra *infrastructure.Infrastructure
	sys   validations.System
	cfg   *config.Config
}

func openSession(ctx context.Context, cfgPath string) (*session, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	infra, err := infrastructure.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := infra.Start(); err != nil {
		return nil, err
	}
	infra.Lifecycle.WaitForStartup()

	sys := validations.New(validations.Deps{
		Runtime:         infra.Runtime(&cfg.Pipeline),
		Cache:           infra.Cache,
		Store:           infra.Storage,
		Metrics:         infra.Metrics,
		Tracer:          infra.Tracer,
		Logger:          infra.Logger,
		MaxDocumentSize: cfg.API.MaxUploadSizeBytes(),
	})

	return &session{infra: infra, sys: sys, cfg: cfg}, nil
}

func (s *session) close() {
	if err := s.infra.Lifecycle.Shutdown(s.cfg.ShutdownTimeoutDuration()); err != nil {
		s.infra.Logger.Error("shutdown failed", "error", err)
	}
}

func readDocument(path string) (workflow.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return workflow.Document{}, fmt.Errorf("read document: %w", err)
	}
	return workflow.Document{Data: data, Filename: filepath.Base(path)}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validateCmd(cfgPath *string) *cobra.Command {
	var file, person, date, organization string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a document for an asserted person and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(file)
			if err != nil {
				return err
			}
			doc.Organization = organization

			if date != "" {
				if doc.ReferenceDate, err = rules.ParseDate(date); err != nil {
					return err
				}
			}

			s, err := openSession(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.sys.Validate(cmd.Context(), validations.ValidateCommand{
				Document: doc,
				Person:   person,
			})
			if err != nil {
				var pe *workflow.PipelineError
				if errors.As(err, &pe) {
					printJSON(cmd.OutOrStdout(), validations.NewFailure(pe))
				}
				return err
			}

			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "document to validate (pdf, png, jpeg or tiff)")
	cmd.Flags().StringVarP(&person, "person", "p", "", "asserted insured person")
	cmd.Flags().StringVarP(&date, "date", "d", "", "reference date (default today)")
	cmd.Flags().StringVar(&organization, "organization", "", "issuing organization, when not evident from the file name")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("person")

	return cmd
}

func marksCmd(cfgPath *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "marks",
		Short: "Detect signatures and handwritten marks per page",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(file)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer s.close()

			report, err := s.sys.DetectMarks(cmd.Context(), doc)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "document to scan")
	cmd.MarkFlagRequired("file")

	return cmd
}

func openapiCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI description of the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), api.NewSpec(cfg.Version, cfg.API.BasePath))
		},
	}
}
