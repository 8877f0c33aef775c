//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// run invokes the built CLI with the given arguments.
func run(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

// Ingest chunks the raw corpus into retrieval units.
func Ingest() error {
	mg.Deps(Build)
	return run("ingest")
}

// Index builds the SQLite retrieval index from the chunk files,
// ingesting first.
func Index() error {
	mg.Deps(Ingest)
	return run("index")
}

// Synth runs the synthesis loop end to end against a fresh index. The
// root feature and domain come from fmforge.yaml or FMFORGE_SYNTHESIS_*
// environment variables.
func Synth() error {
	mg.Deps(Index)
	return run("synth")
}

// Check validates every model artifact under runs/.
func Check() error {
	mg.Deps(Build)
	models, err := filepath.Glob(filepath.Join("runs", "*", "model.xml"))
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Println("No run artifacts to check.")
		return nil
	}
	return run(append([]string{"check"}, models...)...)
}
