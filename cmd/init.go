package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/huangsam/coverbouncer/core"
	"github.com/huangsam/coverbouncer/schema"
	"github.com/spf13/cobra"
)

// initCmd writes a starter policy file.
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a starter coverbouncer.json policy",
	Long: `Write a policy file from one of the built-in templates.

Templates:
  basic   - Standard (default), BusinessLogic, Critical and Dto profiles
  strict  - High (default), Critical, Moderate and Low profiles
  relaxed - Low (default), Moderate, Important and Critical profiles

Examples:
  # Create coverbouncer.json in the current directory
  coverbouncer init

  # Start strict and overwrite an existing file
  coverbouncer init --template strict --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := schema.DefaultPolicyFileName
		if len(args) == 1 {
			path = args[0]
		}
		template := flagString(cmd, "template")
		force := flagBool(cmd, "force")
		return runInit(cmd, path, template, force)
	},
}

// runInit writes the named template to path.
func runInit(cmd *cobra.Command, path, template string, force bool) error {
	policy, err := schema.GetTemplate(template)
	if err != nil {
		return err
	}
	if force {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to replace %s: %w", path, err)
		}
	}
	if err := core.WritePolicyFile(policy, path); err != nil {
		return err
	}
	cmd.Printf("Created %s from the %s template (default profile: %s).\n", path, template, policy.DefaultProfile)
	cmd.Println(`Mark a source file with // [CoverageProfile("Critical")] to give it a stricter profile.`)
	return nil
}
