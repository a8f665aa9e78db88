package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/eringen/herald/scaffold"
)

// scaffoldData holds the template variables passed to every scaffold template.
type scaffoldData struct {
	SiteName      string
	SiteURL       string
	GraphQLURL    string
	SessionSecret string
	WebhookToken  string
}

var (
	flagInitName       string
	flagInitURL        string
	flagInitGraphQLURL string
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter herald.yaml and .env.example",
	Long: `init writes herald.yaml and .env.example into dir (default: the current
directory). Existing files are never overwritten. The generated .env.example
carries a fresh session secret and webhook token.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return runInit(cmd.OutOrStdout(), dir)
	},
}

func init() {
	initCmd.Flags().StringVar(&flagInitName, "name", "", "site name (default: derived from dir)")
	initCmd.Flags().StringVar(&flagInitURL, "url", "http://localhost:3000", "canonical site URL")
	initCmd.Flags().StringVar(&flagInitGraphQLURL, "graphql-url", "http://localhost:8080/graphql", "WPGraphQL endpoint")
}

func runInit(w io.Writer, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	name := flagInitName
	if name == "" {
		name = toTitle(filepath.Base(abs))
	}
	secret, err := randomHex(32)
	if err != nil {
		return err
	}
	token, err := randomHex(16)
	if err != nil {
		return err
	}
	data := scaffoldData{
		SiteName:      name,
		SiteURL:       strings.TrimSuffix(flagInitURL, "/"),
		GraphQLURL:    flagInitGraphQLURL,
		SessionSecret: secret,
		WebhookToken:  token,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	fmt.Fprintf(w, "Creating herald site %q in %s\n\n", name, abs)

	root := "templates"
	err = fs.WalkDir(scaffold.Templates, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		outPath := strings.TrimSuffix(filepath.Join(dir, relPath), ".tmpl")
		if filepath.Base(outPath) == "dotenv" {
			outPath = filepath.Join(filepath.Dir(outPath), ".env.example")
		}

		if d.IsDir() {
			return os.MkdirAll(outPath, 0o755)
		}
		if _, err := os.Stat(outPath); err == nil {
			fmt.Fprintf(w, "  skipped %s (exists)\n", outPath)
			return nil
		}

		content, err := scaffold.Templates.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		tmpl, err := template.New(filepath.Base(path)).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()

		if err := tmpl.Execute(f, data); err != nil {
			return fmt.Errorf("execute template %s: %w", path, err)
		}
		fmt.Fprintf(w, "  created %s\n", outPath)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  cp .env.example .env and set HERALD_ADMIN_PASSWORD")
	fmt.Fprintln(w, "  herald plan      # check what would be built")
	fmt.Fprintln(w, "  herald serve")
	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// toTitle converts a hyphenated or lowercase name to a title-case string.
// e.g. "my-blog" -> "My Blog", "myblog" -> "Myblog"
func toTitle(s string) string {
	parts := strings.Split(s, "-")
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
