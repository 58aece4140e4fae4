package main

import (
	"os"
	"os/exec"

	"github.com/goyek/goyek/v2"
)

func run(a *goyek.A, name string, args ...string) {
	a.Logf("%s %v", name, args)
	cmd := exec.CommandContext(a.Context(), name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var fmtTask = goyek.Define(goyek.Task{
	Name:  "fmt",
	Usage: "Check formatting with gofmt",
	Action: func(a *goyek.A) {
		out, err := exec.CommandContext(a.Context(), "gofmt", "-l", "cmd", "internal", "build").Output()
		if err != nil {
			a.Fatal(err)
		}
		if len(out) > 0 {
			a.Errorf("files need formatting:\n%s", out)
		}
	},
})

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		run(a, "go", "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run all tests",
	Deps:  goyek.Deps{vet},
	Action: func(a *goyek.A) {
		run(a, "go", "test", "./...")
	},
})

var _ = goyek.Define(goyek.Task{
	Name:  "all",
	Usage: "Check formatting, vet and test",
	Deps:  goyek.Deps{fmtTask, test},
})

func main() {
	goyek.SetDefault(test)
	goyek.Main(os.Args[1:])
}
