package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"sort"
	"strings"
	"text/template"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/server"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate a markdown reference of the MCP tools inboxbrief registers.
The reference is built from the registered tool definitions, so it always
matches what an assistant sees.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := generateDocs()
			if err != nil {
				return err
			}

			if outputFile == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// docsAuthorizer lets the tools register without credentials. Nothing calls it.
type docsAuthorizer struct{}

func (docsAuthorizer) HTTPClient(context.Context) (*http.Client, error) {
	return nil, errors.New("no Google access while generating docs")
}
func (docsAuthorizer) HasToken() bool    { return false }
func (docsAuthorizer) TokenPath() string { return "" }

func generateDocs() (string, error) {
	sc, err := server.NewServerContext(context.Background(), config.Default(), docsAuthorizer{},
		server.WithLogger(logging.Discard()))
	if err != nil {
		return "", fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	// Not read-only, so create_draft is listed too.
	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, sc); err != nil {
		return "", err
	}

	var tools []mcp.Tool
	for _, st := range mcpSrv.ListTools() {
		tools = append(tools, st.Tool)
	}

	var sb strings.Builder
	if err := docsTemplate.Execute(&sb, buildDocs(tools)); err != nil {
		return "", fmt.Errorf("failed to render docs: %w", err)
	}
	return sb.String(), nil
}

type toolDocs struct {
	MaxEntries int
	Categories []categoryDocs
}

type categoryDocs struct {
	Name  string
	Tools []toolDoc
}

func (c categoryDocs) Anchor() string {
	return strings.ToLower(strings.ReplaceAll(c.Name, " ", "-"))
}

type toolDoc struct {
	Name        string
	Description string
	Args        []argDoc
}

type argDoc struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

func buildDocs(tools []mcp.Tool) toolDocs {
	byCategory := map[string][]toolDoc{}
	for _, tool := range tools {
		cat := getCategoryFromToolName(tool.Name)
		byCategory[cat] = append(byCategory[cat], describeTool(tool))
	}

	docs := toolDocs{MaxEntries: config.MaxEntries}
	for name, tools := range byCategory {
		sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
		docs.Categories = append(docs.Categories, categoryDocs{Name: name, Tools: tools})
	}
	sort.Slice(docs.Categories, func(i, j int) bool { return docs.Categories[i].Name < docs.Categories[j].Name })
	return docs
}

func describeTool(tool mcp.Tool) toolDoc {
	doc := toolDoc{Name: tool.Name, Description: tool.Description}
	for name, raw := range tool.InputSchema.Properties {
		prop, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		arg := argDoc{Name: name, Type: "any", Required: slices.Contains(tool.InputSchema.Required, name)}
		if t, ok := prop["type"].(string); ok {
			arg.Type = t
		}
		if d, ok := prop["description"].(string); ok {
			arg.Description = d
		} else {
			arg.Description = arg.Type + " parameter"
		}
		doc.Args = append(doc.Args, arg)
	}
	sort.Slice(doc.Args, func(i, j int) bool { return doc.Args[i].Name < doc.Args[j].Name })
	return doc
}

// getCategoryFromToolName maps a tool to its Google service by the noun it acts on.
func getCategoryFromToolName(name string) string {
	switch {
	case strings.HasSuffix(name, "_events"):
		return "Google Calendar Tools"
	case strings.HasSuffix(name, "_messages"), strings.HasSuffix(name, "_message"), strings.HasSuffix(name, "_draft"):
		return "Gmail Tools"
	default:
		return "Other"
	}
}

var docsTemplate = template.Must(template.New("docs").Parse(`# MCP Tools Reference

Tools available when running inboxbrief as an MCP server.

**Note:** This documentation is generated from the tool definitions with ` + "`inboxbrief generate-docs`" + `.

## Table of Contents

{{range .Categories}}- [{{.Name}}](#{{.Anchor}})
{{end}}
## Limits

` + "`limit`" + ` arguments accept 1 to {{.MaxEntries}}. Omit them or pass -1 for the configured default.
{{range .Categories}}
## {{.Name}}
{{range .Tools}}
### {{.Name}}
{{if .Description}}
{{.Description}}
{{end}}{{if .Args}}
**Arguments:**
{{range .Args}}- ` + "`{{.Name}}`" + ` ({{.Type}}, {{if .Required}}required{{else}}optional{{end}}): {{.Description}}
{{end}}{{end}}{{end}}{{end}}`))
