package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/api"
	"github.com/jackzampolin/sift/internal/home"
	"github.com/jackzampolin/sift/internal/schema"
	"github.com/jackzampolin/sift/internal/server/endpoints"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Work with extraction schemas offline",
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check <file|->",
	Short: "Validate a schema file and print its JSON Schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readSchemaFile(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		resp := endpoints.CheckSchema(text)
		if err := api.Output(resp); err != nil {
			return err
		}
		if !resp.Valid {
			return fmt.Errorf("invalid schema")
		}
		return nil
	},
}

type templateInfo struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

var schemaTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List built-in and user schema templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		builtin, err := schema.Templates()
		if err != nil {
			return err
		}
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		user, err := schema.LoadDir(h.SchemasDir())
		if err != nil {
			return err
		}

		var out []templateInfo
		for _, t := range append(builtin, user...) {
			out = append(out, templateInfo{Name: t.Name, Path: t.Path})
		}
		return api.Output(out)
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <template>",
	Short: "Print a built-in schema template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := schema.GetTemplate(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), t.Text)
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaCheckCmd)
	schemaCmd.AddCommand(schemaTemplatesCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	rootCmd.AddCommand(schemaCmd)
}
