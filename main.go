package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/coreos/pkg/capnslog"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/codegen"
	"github.com/pontaoski/plc/interpreter"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/plc", "cli")

func setupLogging(level string) error {
	capnslog.SetFormatter(capnslog.NewPrettyFormatter(os.Stderr, false))
	if level == "" {
		level = "WARNING"
	}

	l, err := capnslog.ParseLevel(strings.ToUpper(level))
	if err != nil {
		return tracerr.Errorf("unknown log level %q", level)
	}
	capnslog.SetGlobalLogLevel(l)
	return nil
}

// currentProject is the manifest of the working directory, if any.
func currentProject() (project, error) {
	p, found, err := readProject(".")
	if err != nil {
		return project{}, err
	}
	if found {
		plog.Debugf("using %s of package %s", manifestFile, p.Package)
	}
	return p, nil
}

func sourceFile(c *cli.Context, p project) (string, error) {
	if file := c.Args().First(); file != "" {
		return file, nil
	}
	if p.Entry != "" {
		return p.Entry, nil
	}
	return "", tracerr.Errorf("no source file given and no Entry in %s", manifestFile)
}

func loadPipeline(c *cli.Context) (pipeline, project, error) {
	p, err := currentProject()
	if err != nil {
		return pipeline{}, project{}, err
	}

	file, err := sourceFile(c, p)
	if err != nil {
		return pipeline{}, project{}, err
	}

	pl, err := readPipeline(file)
	return pl, p, err
}

func interpreterSettings(c *cli.Context, p project) interpreter.Settings {
	places := p.DecimalPlaces
	if c.IsSet("decimal-places") {
		places = int32(c.Int("decimal-places"))
	}
	return interpreter.Settings{
		DecimalPlaces: places,
		MaxCallDepth:  c.Int("max-depth"),
	}
}

var interpreterFlags = []cli.Flag{
	&cli.IntFlag{
		Name:  "decimal-places",
		Usage: "fractional digits Decimal multiplication, division and powers round to",
		Value: interpreter.DefaultDecimalPlaces,
	},
	&cli.IntFlag{
		Name:  "max-depth",
		Usage: "maximum call depth before a program is stopped",
		Value: interpreter.DefaultMaxCallDepth,
	},
}

func build(c *cli.Context) error {
	pl, p, err := loadPipeline(c)
	if err != nil {
		return err
	}

	target := c.String("target")
	if target == "" {
		target = p.Target
	}
	if target == "" {
		target = "java"
	}

	out := c.String("output")
	if out == "" {
		out = p.Output
	}

	switch target {
	case "java":
		if c.Bool("dump") {
			return pl.java(os.Stdout)
		}
		if out == "" {
			out = "Main.java"
		}

		fi, err := os.Create(out)
		if err != nil {
			return tracerr.Wrap(err)
		}
		defer fi.Close()
		return pl.java(fi)
	case "llvm":
		name := p.Package
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(pl.filename), filepath.Ext(pl.filename))
		}

		module, err := pl.llvm(codegen.Settings{
			PackageName: name,
			Library:     c.Bool("library"),
		})
		if err != nil {
			return err
		}

		if c.Bool("dump") {
			fmt.Println(module)
			return nil
		}
		if !c.Bool("link") {
			if out == "" {
				out = name + ".ll"
			}
			return tracerr.Wrap(ioutil.WriteFile(out, []byte(module), 0644))
		}
		if out == "" {
			out = name
		}
		return link(module, out, c.Bool("library"))
	default:
		return tracerr.Errorf("unknown target %q, expected java or llvm", target)
	}
}

// link compiles module to a native executable or shared library with clang.
func link(module, out string, library bool) error {
	fi, err := ioutil.TempFile("", "*.ll")
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer os.Remove(fi.Name())
	defer fi.Close()

	_, err = io.Copy(fi, strings.NewReader(module))
	if err != nil {
		return tracerr.Wrap(err)
	}

	cmd := exec.Command("clang", "-o", out, fi.Name(), "-lm")
	if library {
		cmd.Args = append(cmd.Args, "-shared", "-fPIC")
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	plog.Debugf("running %s", strings.Join(cmd.Args, " "))
	return tracerr.Wrap(cmd.Run())
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "plc",
		Usage: "interpreter and compiler for a small statically typed language",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "one of CRITICAL, ERROR, WARNING, NOTICE, INFO, DEBUG or TRACE",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "print a stack trace with failures",
			},
		},
		Before: func(c *cli.Context) error {
			level := c.String("log-level")
			if level == "" {
				p, err := currentProject()
				if err != nil {
					return err
				}
				level = p.LogLevel
			}
			return setupLogging(level)
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			if c.Bool("trace") {
				if serr, ok := err.(stageError); ok {
					err = serr.Err
				}
				tracerr.PrintSourceColor(err)
			}
			os.Exit(1)
		},
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "write a project manifest to the current directory",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return tracerr.New("no project name provided")
					}
					return writeProject(".", newProject(name))
				},
			},
			{
				Name:      "run",
				Usage:     "check and interpret a program",
				ArgsUsage: "[FILE]",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "print-result",
						Usage: "print the value main returns",
					},
				}, interpreterFlags...),
				Action: func(c *cli.Context) error {
					pl, p, err := loadPipeline(c)
					if err != nil {
						return err
					}

					result, err := pl.run(interpreterSettings(c, p))
					if err != nil {
						return err
					}
					if c.Bool("print-result") {
						fmt.Println(result)
					}
					return nil
				},
			},
			{
				Name:      "check",
				Usage:     "lex, parse and analyze a program",
				ArgsUsage: "[FILE]",
				Action: func(c *cli.Context) error {
					pl, _, err := loadPipeline(c)
					if err != nil {
						return err
					}
					_, err = pl.check()
					return err
				},
			},
			{
				Name:      "build",
				Usage:     "translate a program to Java source or LLVM IR",
				ArgsUsage: "[FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "target",
						Usage: "java or llvm",
					},
					&cli.StringFlag{
						Name: "output",
					},
					&cli.BoolFlag{
						Name:  "dump",
						Usage: "write the output to stdout",
					},
					&cli.BoolFlag{
						Name:  "link",
						Usage: "link LLVM output with clang",
					},
					&cli.BoolFlag{
						Name:  "library",
						Usage: "leave out the C entry point",
					},
				},
				Action: build,
			},
			{
				Name:      "dump",
				Usage:     "print the tokens or syntax tree of a program",
				ArgsUsage: "[FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "stage",
						Usage: "tokens, ast or analyzed",
						Value: "ast",
					},
				},
				Action: func(c *cli.Context) error {
					pl, _, err := loadPipeline(c)
					if err != nil {
						return err
					}
					return pl.dump(c.String("stage"), os.Stdout)
				},
			},
			{
				Name:      "typeinfo",
				Usage:     "dump typeinfo from a compiled module",
				ArgsUsage: "FILE.ll",
				Action: func(c *cli.Context) error {
					data, err := codegen.ReadTypeInfo(c.Args().First())
					if err != nil {
						return err
					}
					repr.Println(data)
					return nil
				},
			},
			{
				Name:  "repl",
				Usage: "read and run programs interactively",
				Flags: interpreterFlags,
				Action: func(c *cli.Context) error {
					p, err := currentProject()
					if err != nil {
						return err
					}
					return repl(interpreterSettings(c, p))
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}
