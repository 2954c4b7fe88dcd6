// Command build-release-binaries cross compiles sealio for all release
// platforms and compresses the results, one worker per GOMAXPROCS/4.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var opts = struct {
	Verbose      bool
	SourceDir    string
	OutputDir    string
	Tags         string
	Platform     string
	SkipCompress bool
	Version      string
}{}

func init() {
	pflag.BoolVarP(&opts.Verbose, "verbose", "v", false, "be verbose")
	pflag.StringVarP(&opts.SourceDir, "source", "s", "/sealio", "path to the source code `directory`")
	pflag.StringVarP(&opts.OutputDir, "output", "o", "/output", "path to the output `directory`")
	pflag.StringVar(&opts.Tags, "tags", "", "additional build `tags`")
	pflag.StringVarP(&opts.Platform, "platform", "p", "", "only build for this `os/arch`")
	pflag.BoolVar(&opts.SkipCompress, "skip-compress", false, "skip binary compression step")
	pflag.StringVar(&opts.Version, "version", "", "use `x.y.z` as the version for output files")
	pflag.Parse()
}

func die(f string, args ...interface{}) {
	if !strings.HasSuffix(f, "\n") {
		f += "\n"
	}
	f = "\x1b[31m" + f + "\x1b[0m"
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func msg(f string, args ...interface{}) {
	if !strings.HasSuffix(f, "\n") {
		f += "\n"
	}
	f = "\x1b[32m" + f + "\x1b[0m"
	fmt.Printf(f, args...)
}

func verbose(f string, args ...interface{}) {
	if opts.Verbose {
		msg(f, args...)
	}
}

func rm(file string) {
	err := os.Remove(file)
	if err != nil && !os.IsNotExist(err) {
		die("error removing %v: %v", file, err)
	}
}

func outputName(goos, goarch string) string {
	parts := []string{"sealio"}
	if opts.Version != "" {
		parts = append(parts, opts.Version)
	}
	parts = append(parts, goos, goarch)

	name := strings.Join(parts, "_")
	if goos == "windows" {
		name += ".exe"
	}
	return name
}

func build(sourceDir, outputDir, goos, goarch string) (filename string) {
	filename = outputName(goos, goarch)
	outputFile := filepath.Join(outputDir, filename)

	args := []string{"build", "-o", outputFile, "-ldflags", "-s -w"}
	if opts.Tags != "" {
		args = append(args, "-tags", opts.Tags)
	}
	args = append(args, "./cmd/sealio")

	c := exec.Command("go", args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Dir = sourceDir
	c.Env = append(os.Environ(),
		"CGO_ENABLED=0",
		"GOOS="+goos,
		"GOARCH="+goarch,
	)
	if goarch == "arm" {
		// the raspberry pi 1 only supports the ARMv6 instruction set
		c.Env = append(c.Env, "GOARM=6")
	}
	verbose("run go %v in %v", args, c.Dir)

	err := c.Run()
	if err != nil {
		die("error building %v/%v: %v", goos, goarch, err)
	}

	return filename
}

func compress(goos, inputDir, filename string) (outputFile string) {
	var c *exec.Cmd
	switch goos {
	case "windows":
		outputFile = strings.TrimSuffix(filename, ".exe") + ".zip"
		c = exec.Command("zip", "-q", "-X", outputFile, filename)
	default:
		outputFile = filename + ".bz2"
		c = exec.Command("bzip2", filename)
	}

	rm(filepath.Join(inputDir, outputFile))

	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Dir = inputDir
	verbose("run %v in %v", c.Args, c.Dir)

	err := c.Run()
	if err != nil {
		die("error compressing: %v", err)
	}

	rm(filepath.Join(inputDir, filename))

	return outputFile
}

func buildForTarget(sourceDir, outputDir, goos, goarch string) {
	// reproducible timestamps, the binaries are only as new as the release
	fi, err := os.Lstat(filepath.Join(sourceDir, "VERSION"))
	if err != nil {
		die("unable to get modtime of VERSION: %v", err)
	}
	mtime := fi.ModTime()

	filename := build(sourceDir, outputDir, goos, goarch)
	if err := os.Chtimes(filepath.Join(outputDir, filename), mtime, mtime); err != nil {
		die("unable to update timestamps for %v: %v", filename, err)
	}
	if err := os.Chmod(filepath.Join(outputDir, filename), 0755); err != nil {
		die("unable to chmod %v: %v", filename, err)
	}

	if !opts.SkipCompress {
		compress(goos, outputDir, filename)
	}
}

func buildTargets(sourceDir, outputDir string, targets map[string][]string) {
	start := time.Now()
	// the go compiler is already parallelized, thus reduce the concurrency a bit
	workers := runtime.GOMAXPROCS(0) / 4
	if workers < 1 {
		workers = 1
	}
	msg("building with %d workers", workers)

	type Job struct{ GOOS, GOARCH string }

	var wg errgroup.Group
	ch := make(chan Job)

	for i := 0; i < workers; i++ {
		wg.Go(func() error {
			for job := range ch {
				start := time.Now()
				buildForTarget(sourceDir, outputDir, job.GOOS, job.GOARCH)
				msg("built %v/%v in %.3fs", job.GOOS, job.GOARCH, time.Since(start).Seconds())
			}
			return nil
		})
	}

	wg.Go(func() error {
		for goos, archs := range targets {
			for _, goarch := range archs {
				ch <- Job{goos, goarch}
			}
		}
		close(ch)
		return nil
	})

	_ = wg.Wait()
	msg("build finished in %.3fs", time.Since(start).Seconds())
}

var defaultBuildTargets = map[string][]string{
	"darwin":  {"amd64", "arm64"},
	"freebsd": {"386", "amd64", "arm"},
	"linux":   {"386", "amd64", "arm", "arm64", "ppc64le", "riscv64", "s390x"},
	"netbsd":  {"386", "amd64"},
	"openbsd": {"386", "amd64"},
	"windows": {"386", "amd64"},
	"solaris": {"amd64"},
}

func downloadModules(sourceDir string) {
	c := exec.Command("go", "mod", "download")
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Dir = sourceDir

	err := c.Run()
	if err != nil {
		die("error downloading modules: %v", err)
	}
}

func main() {
	if len(pflag.Args()) != 0 {
		die("USAGE: build-release-binaries [OPTIONS]")
	}

	targets := defaultBuildTargets
	if opts.Platform != "" {
		goos, goarch, found := strings.Cut(opts.Platform, "/")
		if !found {
			die("--platform expects os/arch, got %q", opts.Platform)
		}
		targets = map[string][]string{goos: {goarch}}
	}

	sourceDir, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		die("unable to find absolute path for %v: %v", opts.SourceDir, err)
	}
	outputDir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		die("unable to find absolute path for %v: %v", opts.OutputDir, err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		die("mkdir %v: %v", outputDir, err)
	}

	downloadModules(sourceDir)
	buildTargets(sourceDir, outputDir, targets)
}
