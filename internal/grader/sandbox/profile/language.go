// Package profile defines how each supported language is built and run.
package profile

// Kind selects the build variant of a language.
type Kind string

const (
	KindInterpreted Kind = "interpreted"
	KindCompiled    Kind = "compiled"
)

// LanguageSpec defines how to compile and run a language.
//
// Command templates are split with shell quoting rules after expansion of
// {src} (absolute entry file), {bin} (absolute binary path), {dir}
// (submission root) and {main} (entry file name without extension).
// Path placeholders are quoted so roots containing spaces stay one argument.
type LanguageSpec struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Kind          Kind     `yaml:"kind"`
	EntryFile     string   `yaml:"entryFile"`
	BinaryFile    string   `yaml:"binaryFile"`
	CompileCmdTpl string   `yaml:"compileCmd"`
	RunCmdTpl     string   `yaml:"runCmd"`
	Env           []string `yaml:"env"`
}

// Compiled reports whether the language needs a build step.
func (l LanguageSpec) Compiled() bool {
	return l.Kind == KindCompiled
}

// DefaultLanguages mirrors the selectors accepted by the grading API.
func DefaultLanguages() []LanguageSpec {
	return []LanguageSpec{
		{
			ID:        "python",
			Name:      "Python",
			Kind:      KindInterpreted,
			EntryFile: "main.py",
			RunCmdTpl: `python3 "{src}"`,
		},
		{
			ID:            "java",
			Name:          "Java",
			Kind:          KindCompiled,
			EntryFile:     "Main.java",
			CompileCmdTpl: `javac "{src}"`,
			RunCmdTpl:     `java -cp "{dir}" {main}`,
		},
		{
			ID:            "cpp",
			Name:          "C++",
			Kind:          KindCompiled,
			EntryFile:     "main.cpp",
			BinaryFile:    "main_cpp_exe",
			CompileCmdTpl: `g++ "{src}" -o "{bin}"`,
			RunCmdTpl:     `"{bin}"`,
		},
	}
}
