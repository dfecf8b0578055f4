// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"bxc/internal/check"
	"bxc/internal/config"
	"bxc/internal/diag"
	"bxc/internal/grammar"
	"bxc/internal/llvm"
	"bxc/internal/lower"
	"bxc/internal/rtl"
	"bxc/internal/ssa"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: bxc <file.bx>")
		os.Exit(1)
	}

	startTime := time.Now()
	path := os.Args[1]

	if !strings.HasSuffix(path, ".bx") {
		fmt.Fprintf(os.Stderr, "Bad file name: %s\n", path)
		os.Exit(1)
	}
	stem := strings.TrimSuffix(path, ".bx")

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(filepath.Dir(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	verbosity := 0
	if cfg.Build.Verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)
	log := commonlog.GetLogger("bxc.pipeline")

	reporter := diag.NewReporter(path, string(src))

	program, parseErrs := grammar.ParseSource(path, string(src))
	if len(parseErrs) > 0 {
		for _, pe := range parseErrs {
			fmt.Print(reporter.Format(diag.Diagnostic{
				Level:   diag.Error,
				Code:    diag.CodeSyntax,
				Message: pe.Message,
				Pos:     pe.Pos,
			}))
		}
		fail(startTime)
	}
	log.Infof("%s parsed", path)

	res, diags := check.Check(program)
	hasErrors := false
	for _, d := range diags {
		fmt.Print(reporter.Format(d))
		if d.Level == diag.Error {
			hasErrors = true
		}
	}
	if hasErrors {
		fail(startTime)
	}
	log.Infof("%s type checked", path)

	counters := rtl.NewCounters()

	rtlProg, err := lower.Lower(program, res, counters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fail(startTime)
	}
	rtlFile := stem + ".rtl"
	writeStage(rtlFile, rtl.Print(rtlProg), log)

	ssaProg, err := ssa.Transform(rtlProg, counters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fail(startTime)
	}
	ssaFile := stem + ".ssa"
	writeStage(ssaFile, ssa.Print(ssaProg), log)

	llText, err := llvm.GenerateText(ssaProg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fail(startTime)
	}
	llFile := stem + ".ll"
	writeStage(llFile, llText, log)

	exeFile := stem + ".exe"
	args := []string{"-Wno-override-module", "-O2", "-o", exeFile, llFile}
	if cfg.Build.Runtime != "" {
		args = append(args, cfg.Build.Runtime)
	}
	cmd := exec.Command(cfg.Build.Clang, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		color.Red("Could not run %s successfully: %v", cfg.Build.Clang, err)
		os.Exit(2)
	}
	log.Infof("%s created", exeFile)

	if !cfg.Build.KeepIntermediates {
		os.Remove(rtlFile)
		os.Remove(ssaFile)
	}

	color.Green("Successfully compiled %s in %s", path, formatDuration(time.Since(startTime)))
}

func writeStage(path, content string, log commonlog.Logger) {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
		os.Exit(1)
	}
	log.Infof("%s written", path)
}

func fail(startTime time.Time) {
	color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
	os.Exit(1)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
