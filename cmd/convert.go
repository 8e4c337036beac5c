package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/pyreview/internal/intake"
	"github.com/fulmenhq/pyreview/pkg/exitcode"
	"github.com/fulmenhq/pyreview/pkg/logger"
	"github.com/fulmenhq/pyreview/pkg/safeio"
)

func newConvertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <notebook.ipynb|file.py|->",
		Short: "Print the Python source a notebook is reviewed as",
		Long: `Convert a Jupyter notebook to a Python script the way 'check' stages it: code cells
under '# In[n]:' headers, markdown as comments, IPython magics commented out. Python files are
only normalized (line endings).`,
		Args: cobra.ExactArgs(1),
		RunE: runConvert,
	}
	cmd.Flags().StringP("output", "o", "", "Write the script to a file instead of stdout")
	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	name, content, err := readFormatTarget(cmd, args[0])
	if err != nil {
		return err
	}
	source, err := intake.ToPython(name, content)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), source)
		return err
	}
	if err := safeio.WriteFilePreservePerms(output, []byte(source)); err != nil {
		return withExitCode(exitcode.FileSystemError, fmt.Errorf("writing %s: %w", output, err))
	}
	logger.Info("Converted", logger.String("input", name), logger.String("output", output))
	return nil
}
