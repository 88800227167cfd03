// Package report turns result files into a single self-contained HTML page
// by embedding them into a prebuilt template.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Placeholder marks where result files are inserted into the template
const Placeholder = "<!-- __DATA__ -->"

// TemplateEnv overrides DefaultTemplatePath
const TemplateEnv = "RSB_TEMPLATE_PATH"

// DefaultTemplatePath is where the built report frontend lives
const DefaultTemplatePath = "report/dist/index.html"

// TemplatePath returns the template location from the environment, or the default
func TemplatePath() string {
	if path := os.Getenv(TemplateEnv); path != "" {
		return path
	}
	return DefaultTemplatePath
}

// Merge embeds each data blob into html, in order. Every blob becomes a
// script block inserted before the placeholder, so the placeholder survives
// and later blobs land after earlier ones.
func Merge(html string, data ...[]byte) string {
	for _, d := range data {
		block := fmt.Sprintf("<script type=\"data\" compressed=\"false\">\n%s\n</script>\n%s", d, Placeholder)
		html = strings.ReplaceAll(html, Placeholder, block)
	}
	return html
}

// Build reads the template and the result files and writes the merged page to out
func Build(templatePath string, files []string, out string) error {
	log.Info().Str("template", templatePath).Msg("Reading template HTML")
	tpl, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	data := make([][]byte, 0, len(files))
	for _, path := range files {
		log.Debug().Str("path", path).Msg("Adding result file")
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		data = append(data, b)
	}

	log.Info().Str("out", out).Int("files", len(files)).Msg("Writing finished report")
	if err := os.WriteFile(out, []byte(Merge(string(tpl), data...)), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
