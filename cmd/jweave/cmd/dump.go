package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/daimatz/jweave/pkg/bytecode"
	"github.com/daimatz/jweave/pkg/typedef"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var colorHeader = color.New(color.FgHiBlue, color.Bold).SprintFunc()

func init() {
	rootCmd.AddCommand(dumpCmd)
}

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:           "dump <CLASS>",
	Aliases:       []string{"d"},
	Short:         "Print the disassembly of a class file",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(filepath.Clean(args[0]))
		if err != nil {
			return err
		}
		out, err := disassemble(data, colorHeader)
		if err != nil {
			return errors.Wrapf(err, "disassembling %s", args[0])
		}
		fmt.Print(out)
		return nil
	},
}

// disassemble renders every member of a class. header styles the class and
// member lines.
func disassemble(data []byte, header func(...any) string) (string, error) {
	typ, err := typedef.Parse(data)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	decl := "class " + typ.Name
	if typ.SuperName != "" {
		decl += " extends " + typ.SuperName
	}
	if len(typ.Interfaces) > 0 {
		decl += " implements " + strings.Join(typ.Interfaces, ", ")
	}
	fmt.Fprintf(&sb, "%s\n", header(decl))
	fmt.Fprintf(&sb, "  version: %d.%d, flags: 0x%04x\n", typ.MajorVersion, typ.MinorVersion, typ.AccessFlags)
	for _, f := range typ.Fields {
		fmt.Fprintf(&sb, "  field %s %s (0x%04x)\n", f.Name, f.Descriptor, f.AccessFlags)
	}
	for _, m := range typ.Methods {
		fmt.Fprintf(&sb, "\n  %s (0x%04x)\n", header(m.Name+m.Descriptor()), m.AccessFlags)
		if m.Body == nil {
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(bytecode.Disassemble(m.Body, typ.Pool), "\n"), "\n") {
			fmt.Fprintf(&sb, "    %s\n", line)
		}
	}
	return sb.String(), nil
}
