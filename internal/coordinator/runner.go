package coordinator

// runnerSpec names the source filename and exec command for one language
// tag. Interpreted languages run directly; compiled languages compile
// then run the produced binary in one shell invocation so Exec still
// reports a single exit code for the whole attempt.
type runnerSpec struct {
	Filename string
	Command  []string
}

var runners = map[string]runnerSpec{
	"py":  {"main.py", []string{"python3", "main.py"}},
	"js":  {"main.js", []string{"node", "main.js"}},
	"ts":  {"main.ts", []string{"npx", "--no-install", "ts-node", "main.ts"}},
	"go":  {"main.go", []string{"go", "run", "main.go"}},
	"java": {"Main.java", []string{"sh", "-c", "javac Main.java && java Main"}},
	"c":   {"main.c", []string{"sh", "-c", "gcc -O2 -o main main.c && ./main"}},
	"cpp": {"main.cpp", []string{"sh", "-c", "g++ -O2 -o main main.cpp && ./main"}},
	"php": {"main.php", []string{"php", "main.php"}},
	"rs":  {"main.rs", []string{"sh", "-c", "rustc -O -o main main.rs && ./main"}},
	"r":   {"main.r", []string{"Rscript", "main.r"}},
	"f90": {"main.f90", []string{"sh", "-c", "gfortran -O2 -o main main.f90 && ./main"}},
	"d":   {"main.d", []string{"sh", "-c", "dmd -of=main main.d && ./main"}},
}

func runnerFor(language string) (runnerSpec, bool) {
	r, ok := runners[language]
	return r, ok
}
