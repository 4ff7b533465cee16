package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/pcbsolid/pkg/preview"
)

// outputFlags are shared by build and convert.
type outputFlags struct {
	step string
	stl  string
	png  string
	view string
}

func (of *outputFlags) register(cmd *cobra.Command, stepUsage string) {
	f := cmd.Flags()
	f.StringVarP(&of.step, "output", "o", "", stepUsage)
	f.StringVar(&of.stl, "stl", "", "write an STL mesh to this path")
	f.StringVar(&of.png, "png", "", "write a PNG preview to this path")
	f.StringVar(&of.view, "view", "iso", "preview view: top, bottom, iso")
}

func (of *outputFlags) outputs() (Outputs, error) {
	view, err := preview.ParseView(of.view)
	if err != nil {
		return Outputs{}, err
	}
	return Outputs{Step: of.step, STL: of.stl, PNG: of.png, View: view}, nil
}

// replaceExt swaps the extension of path.
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func newBuildCmd(ro *rootOptions) *cobra.Command {
	of := &outputFlags{}
	cmd := &cobra.Command{
		Use:   "build <description>",
		Short: "Build the solids of a board description and export them",
		Long: `Build evaluates a board description, checks it, stacks its layers into
solids with plated vias and writes a STEP file. The STEP file defaults to
the description's name with a .step extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := of.outputs()
			if err != nil {
				return err
			}
			if out.Step == "" {
				out.Step = replaceExt(args[0], ".step")
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := ro.app.Build(string(src), out)
			if errors.Is(err, ErrInvalidBoard) {
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], e.Error())
				}
			}
			if err != nil {
				return err
			}
			objects := res.Stack.Objects()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d layers, %d solids, %d skipped -> %s\n",
				res.Board.Name, len(res.Board.Layers), len(objects), res.Stack.Skipped, out.Step)
			return nil
		},
	}
	of.register(cmd, "STEP output path")
	return cmd
}

func newInspectCmd(ro *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <file.step>",
		Short: "Report the solids of a STEP file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := ro.app.Inspect(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			fmt.Fprintf(w, "%s: %d solids\n", rep.Name, len(rep.Objects))
			for _, o := range rep.Objects {
				state := "closed"
				if !o.Closed {
					state = "open: " + o.Problem
				}
				fmt.Fprintf(w, "  %-24s V=%d E=%d F=%d triangles=%d failed=%d %s\n",
					o.Name, o.Vertices, o.Edges, o.Faces, o.Triangles, o.FailedFaces, state)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newConvertCmd(ro *rootOptions) *cobra.Command {
	of := &outputFlags{}
	cmd := &cobra.Command{
		Use:   "convert <file.step>",
		Short: "Convert a STEP file to STL, PNG or a re-exported STEP file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := of.outputs()
			if err != nil {
				return err
			}
			if out.Step == "" && !out.meshes() {
				return errors.New("nothing to write: give --output, --stl or --png")
			}
			meshes, err := ro.app.Convert(args[0], out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d meshes\n", args[0], len(meshes))
			return nil
		},
	}
	of.register(cmd, "re-export the solids to this STEP path")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pcbsolid", version)
		},
	}
}
