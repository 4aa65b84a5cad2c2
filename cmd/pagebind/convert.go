package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/simp-lee/pagebind/extract"
	"github.com/simp-lee/pagebind/pipeline"
)

type convertFlags struct {
	title    string
	author   string
	language string
	output   string
}

func newConvertCmd(flags *rootFlags) *cobra.Command {
	cf := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert DIR",
		Short: "Convert the page images in DIR to an ePub",
		Long: "Convert reads every image in DIR in file name order, transcribes each page,\n" +
			"and writes the book to --output or to the configured output directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.setup()
			if err != nil {
				return err
			}
			if cfg.MissingCredential() {
				return fmt.Errorf("convert: PAGEBIND_EXTRACT_API_KEY is not set")
			}
			fs := afero.NewOsFs()
			pages, err := loadPages(fs, args[0])
			if err != nil {
				return err
			}
			log.Info("pages loaded", "dir", args[0], "pages", len(pages))

			ext, err := extract.New(cfg.Extract.Options())
			if err != nil {
				return err
			}
			orch := pipeline.New(ext,
				pipeline.WithPolicy(cfg.Pipeline.Policy()),
				pipeline.WithPrompt(cfg.Extract.Prompt),
				pipeline.WithMaxTokens(cfg.Extract.MaxTokens),
				pipeline.WithPagePause(cfg.Pipeline.PagePause),
				pipeline.WithLogger(log),
			)
			language := cf.language
			if language == "" {
				language = cfg.Book.Language
			}
			book := pipeline.Book{Title: cf.title, Author: cf.author, Language: language}
			artifact, err := orch.Convert(cmd.Context(), book, pages, func(p pipeline.Progress) {
				log.Info("page processed", "page", p.Page, "done", p.Done, "total", p.Total, "outcome", p.Outcome)
			})
			if err != nil {
				return fmt.Errorf("convert: %w", err)
			}

			location := cf.output
			if location == "" {
				location, err = pipeline.NewFileSink(fs, cfg.Output.Dir).Deliver(cmd.Context(), artifact)
			} else {
				err = afero.WriteFile(fs, location, artifact.Data, 0o644)
			}
			if err != nil {
				return fmt.Errorf("convert: write book: %w", err)
			}
			log.Info("book written", "path", location, "sections", artifact.Sections, "elapsed", artifact.Elapsed)
			return nil
		},
	}
	cmd.Flags().StringVar(&cf.title, "title", "", "book title")
	cmd.Flags().StringVar(&cf.author, "author", "", "book author")
	cmd.Flags().StringVar(&cf.language, "language", "", "book language (BCP 47)")
	cmd.Flags().StringVarP(&cf.output, "output", "o", "", "output file (default: <title> - <author>.epub in the output directory)")
	return cmd
}

// loadPages reads the images in dir sorted by file name and numbers them
// from 1. Files that are not images are skipped.
func loadPages(fs afero.Fs, dir string) ([]pipeline.Page, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("convert: read %s: %w", dir, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	var pages []pipeline.Page
	for _, info := range infos {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		data, err := afero.ReadFile(fs, filepath.Join(dir, info.Name()))
		if err != nil {
			return nil, fmt.Errorf("convert: read %s: %w", info.Name(), err)
		}
		mt := mimetype.Detect(data)
		if !strings.HasPrefix(mt.String(), "image/") {
			continue
		}
		pages = append(pages, pipeline.Page{Index: len(pages) + 1, Image: data, MIMEType: mt.String()})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("convert: no images in %s", dir)
	}
	return pages, nil
}
