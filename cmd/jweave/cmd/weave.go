package cmd

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/aymanbagabas/go-udiff"
	"github.com/daimatz/jweave/pkg/jar"
	"github.com/daimatz/jweave/pkg/weave"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(weaveCmd)

	weaveCmd.Flags().StringP("output", "o", "", "output class, jar or directory")
	weaveCmd.Flags().StringP("strategy", "s", "", "weaving strategy (in-place or subclass)")
	weaveCmd.Flags().StringSliceP("class", "c", nil, "glob of internal class names to weave")
	weaveCmd.Flags().StringSlice("exclude", nil, "glob of method names to leave alone")
	weaveCmd.Flags().IntP("workers", "j", 0, "classes woven in parallel")
	weaveCmd.Flags().BoolP("diff", "d", false, "print a disassembly diff of each woven class")
	viper.BindPFlag("weave.output", weaveCmd.Flags().Lookup("output"))
	viper.BindPFlag("weave.strategy", weaveCmd.Flags().Lookup("strategy"))
	viper.BindPFlag("weave.class", weaveCmd.Flags().Lookup("class"))
	viper.BindPFlag("weave.exclude", weaveCmd.Flags().Lookup("exclude"))
	viper.BindPFlag("weave.workers", weaveCmd.Flags().Lookup("workers"))
	viper.BindPFlag("weave.diff", weaveCmd.Flags().Lookup("diff"))
}

// weaveCmd represents the weave command
var weaveCmd = &cobra.Command{
	Use:           "weave <CLASS|JAR|DIR>",
	Aliases:       []string{"w"},
	Short:         "Weave invocation handlers into classes",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := weave.New(c.Options(log.Log))
		if err != nil {
			return err
		}

		in := filepath.Clean(args[0])
		out := viper.GetString("weave.output")
		info, err := os.Stat(in)
		if err != nil {
			return err
		}

		var report *jar.Report
		switch {
		case info.IsDir(), strings.HasSuffix(in, ".jar"):
			if out == "" {
				return errors.Errorf("weaving %s needs --output", in)
			}
			if viper.GetBool("weave.diff") {
				log.Warn("--diff only applies to class files")
			}
			log.WithFields(log.Fields{"input": in, "strategy": c.Weave.Strategy, "workers": c.Weave.Workers}).Info("Weaving")
			if info.IsDir() {
				report, err = jar.WeaveDir(context.Background(), in, out, engine, c.Weave.Workers)
			} else {
				report, err = jar.WeaveFile(context.Background(), in, out, engine, c.Weave.Workers)
			}
		default:
			report, err = weaveClassFile(engine, in, out, viper.GetBool("weave.diff"))
		}
		if err != nil {
			return err
		}

		for _, res := range report.Woven() {
			log.WithFields(log.Fields{"methods": len(res.Methods), "generated": len(res.Generated)}).Info(res.Class)
			for _, sig := range res.Methods {
				log.Debugf("  %s", sig)
			}
		}
		log.WithFields(log.Fields{
			"classes": len(report.Results),
			"woven":   len(report.Woven()),
			"in":      humanize.Bytes(uint64(report.InputSize)),
			"out":     humanize.Bytes(uint64(report.OutputSize)),
		}).Info("Done")
		if out == "" {
			log.Warn("No --output given, nothing written")
		}
		return nil
	},
}

// weaveClassFile weaves a single class. Generated classes are written next
// to out.
func weaveClassFile(engine *weave.Engine, in, out string, diff bool) (*jar.Report, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, err
	}
	res, err := engine.WeaveClass(data)
	if err != nil {
		return nil, errors.Wrapf(err, "weaving %s", in)
	}
	report := &jar.Report{
		Results:    []*weave.Result{res},
		InputSize:  int64(len(data)),
		OutputSize: int64(len(res.Bytes)),
	}
	for _, gen := range res.Generated {
		report.OutputSize += int64(len(gen.Bytes))
	}

	if diff && res.Woven {
		if err := printDiff(res.Class, data, res); err != nil {
			return nil, err
		}
	}
	if out == "" {
		return report, nil
	}
	if err := os.WriteFile(out, res.Bytes, 0o644); err != nil {
		return nil, err
	}
	for _, gen := range res.Generated {
		p := filepath.Join(filepath.Dir(out), path.Base(gen.Name)+".class")
		if err := os.WriteFile(p, gen.Bytes, 0o644); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func printDiff(name string, before []byte, res *weave.Result) error {
	plain := func(a ...any) string { return fmt.Sprint(a...) }
	old, err := disassemble(before, plain)
	if err != nil {
		return err
	}
	woven, err := disassemble(res.Bytes, plain)
	if err != nil {
		return err
	}
	for _, gen := range res.Generated {
		g, err := disassemble(gen.Bytes, plain)
		if err != nil {
			return err
		}
		woven += "\n" + g
	}
	fmt.Print(colorizeDiff(udiff.Unified(name+" (original)", name+" (woven)", old, woven)))
	return nil
}

func colorizeDiff(diff string) string {
	if color.NoColor {
		return diff
	}
	bold := color.New(color.Bold).SprintFunc()
	added := color.New(color.FgGreen).SprintFunc()
	removed := color.New(color.FgRed).SprintFunc()
	hunk := color.New(color.FgCyan).SprintFunc()

	var sb strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		text := strings.TrimSuffix(line, "\n")
		nl := line[len(text):]
		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
			text = bold(text)
		case strings.HasPrefix(text, "+"):
			text = added(text)
		case strings.HasPrefix(text, "-"):
			text = removed(text)
		case strings.HasPrefix(text, "@@"):
			text = hunk(text)
		}
		sb.WriteString(text + nl)
	}
	return sb.String()
}
