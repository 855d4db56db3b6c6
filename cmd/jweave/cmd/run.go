package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/daimatz/jweave/pkg/classfile"
	"github.com/daimatz/jweave/pkg/vm"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSlice("classpath", nil, "extra class directories or jars")
	viper.BindPFlag("run.classpath", runCmd.Flags().Lookup("classpath"))
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:           "run <CLASS>",
	Short:         "Execute the main method of a class with the built-in VM",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}

		filename := filepath.Clean(args[0])
		cf, err := classfile.ParseFile(filename)
		if err != nil {
			return err
		}
		className, err := cf.ClassName()
		if err != nil {
			return err
		}
		root, err := classRoot(filename, className)
		if err != nil {
			return err
		}

		var bootstrap vm.ClassLoader
		if jmodPath := findJmodPath(); jmodPath != "" {
			log.WithField("jmod", jmodPath).Debug("Using JDK classes")
			bootstrap = vm.NewJmodClassLoader(jmodPath)
		} else {
			log.Warn("Could not find java.base.jmod (set JAVA_HOME or JAVA_BASE_JMOD); using built-in hierarchy")
		}

		loaders := vm.ChainClassLoader{vm.NewUserClassLoader(root, bootstrap)}
		for _, cp := range viper.GetStringSlice("run.classpath") {
			if strings.HasSuffix(cp, ".jar") {
				jcl, err := vm.OpenJarClassLoader(cp)
				if err != nil {
					return err
				}
				loaders = append(loaders, jcl)
				continue
			}
			loaders = append(loaders, vm.NewUserClassLoader(cp, nil))
		}

		machine := vm.NewVM(loaders)
		machine.InvocationClass = c.Weave.InvocationType
		machine.HandlerClass = c.Weave.HandlerType
		return errors.Wrapf(machine.Execute(className), "executing %s", className)
	},
}

// classRoot returns the class path directory of a class file, stripping one
// directory per package component.
func classRoot(filename, className string) (string, error) {
	dir := filepath.Dir(filename)
	pkg := filepath.Dir(filepath.FromSlash(className))
	if pkg == "." {
		return dir, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(abs, string(filepath.Separator)+pkg) {
		return "", errors.Errorf("%s declares %s but is not under a matching directory", filename, className)
	}
	return strings.TrimSuffix(abs, string(filepath.Separator)+pkg), nil
}

func findJmodPath() string {
	// 1. Explicit env var
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	// 2. JAVA_HOME
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	// 3. Glob fallback
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
