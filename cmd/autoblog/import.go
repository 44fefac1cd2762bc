package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"autoblog/internal/model"
)

type campaignFile struct {
	Campaigns []campaignSpec `yaml:"campaigns"`
}

type campaignSpec struct {
	Name            string `yaml:"name"`
	FeedURL         string `yaml:"feed_url"`
	MaxItems        int    `yaml:"max_items"`
	CheckLatestOnly bool   `yaml:"check_latest_only"`
	Interval        string `yaml:"interval"`
	Active          *bool  `yaml:"active"`

	Extraction struct {
		Method   string `yaml:"method"`
		Selector string `yaml:"selector"`
	} `yaml:"extraction"`

	Filter struct {
		RemoveByClass    csvList `yaml:"remove_by_class"`
		RemoveByID       csvList `yaml:"remove_by_id"`
		StripLinks       bool    `yaml:"strip_links"`
		AddNofollow      bool    `yaml:"add_nofollow"`
		StripImages      bool    `yaml:"strip_images"`
		MinWords         int     `yaml:"min_words"`
		MaxWords         int     `yaml:"max_words"`
		RequiredKeywords csvList `yaml:"required_keywords"`
		BannedKeywords   csvList `yaml:"banned_keywords"`
	} `yaml:"filter"`

	Rewrite struct {
		Enabled        bool   `yaml:"enabled"`
		PromptTemplate string `yaml:"prompt_template"`
		Provider       string `yaml:"provider"`
	} `yaml:"rewrite"`

	Image struct {
		Download    bool `yaml:"download"`
		SetFeatured bool `yaml:"set_featured"`
	} `yaml:"image"`

	Publish struct {
		AuthorID   int64  `yaml:"author_id"`
		CategoryID int64  `yaml:"category_id"`
		Status     string `yaml:"status"`
	} `yaml:"publish"`
}

// csvList accepts either a YAML sequence or a comma-separated string.
type csvList []string

func (l *csvList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*l = model.SplitCSV(n.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		var out []string
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*l = out
		return nil
	}
	return fmt.Errorf("line %d: expected a list or a comma-separated string", n.Line)
}

func (s *campaignSpec) toModel() model.Campaign {
	c := model.Campaign{
		Name:            s.Name,
		FeedURL:         s.FeedURL,
		MaxItems:        s.MaxItems,
		CheckLatestOnly: s.CheckLatestOnly,
		Extraction: model.ExtractionConfig{
			Method:   model.ExtractionMethod(s.Extraction.Method),
			Selector: s.Extraction.Selector,
		},
		Filter: model.FilterConfig{
			RemoveByClass:    s.Filter.RemoveByClass,
			RemoveByID:       s.Filter.RemoveByID,
			StripLinks:       s.Filter.StripLinks,
			AddNofollow:      s.Filter.AddNofollow,
			StripImages:      s.Filter.StripImages,
			MinWords:         s.Filter.MinWords,
			MaxWords:         s.Filter.MaxWords,
			RequiredKeywords: s.Filter.RequiredKeywords,
			BannedKeywords:   s.Filter.BannedKeywords,
		},
		Rewrite: model.RewriteConfig{
			Enabled:        s.Rewrite.Enabled,
			PromptTemplate: s.Rewrite.PromptTemplate,
			Provider:       model.ProviderKind(s.Rewrite.Provider),
		},
		Image: model.ImageConfig{
			Download:    s.Image.Download,
			SetFeatured: s.Image.SetFeatured,
		},
		Publish: model.PublishConfig{
			AuthorID:   s.Publish.AuthorID,
			CategoryID: s.Publish.CategoryID,
			Status:     model.PostStatus(s.Publish.Status),
		},
		Interval: model.ScheduleInterval(s.Interval),
		IsActive: s.Active == nil || *s.Active,
	}
	c.ApplyDefaults()
	return c
}

// parseCampaigns decodes a campaigns file and reports every invalid
// campaign at once.
func parseCampaigns(r io.Reader) ([]model.Campaign, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f campaignFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("campaigns file is empty")
		}
		return nil, fmt.Errorf("decode campaigns: %w", err)
	}

	var (
		out  []model.Campaign
		errs error
		seen = make(map[string]int)
	)
	for i := range f.Campaigns {
		c := f.Campaigns[i].toModel()
		if err := c.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("campaign %d (%s): %w", i+1, c.Name, err))
			continue
		}
		if prev, dup := seen[c.Name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("campaign %d (%s): duplicate name, first defined as campaign %d", i+1, c.Name, prev))
			continue
		}
		seen[c.Name] = i + 1
		out = append(out, c)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func importCmd(envFiles *[]string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <campaigns.yaml>",
		Short: "Create or update campaigns from a YAML file",
		Long:  "Campaigns are matched by name: existing ones get the new configuration and keep their run history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			campaigns, err := parseCampaigns(f)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d campaigns valid\n", len(campaigns))
				return nil
			}

			a, err := newApp(*envFiles)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			for i := range campaigns {
				c := &campaigns[i]
				if err := a.store.UpsertCampaign(cmd.Context(), c); err != nil {
					return fmt.Errorf("import %s: %w", c.Name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", c.ID, c.Name)
			}
			a.log.Info("campaigns imported", "count", len(campaigns), "file", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without touching the database")
	return cmd
}
