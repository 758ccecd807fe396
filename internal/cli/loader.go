package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/smartfin/internal/compiler"
)

// Contract sources accepted by LoadContract.
const (
	SourceCUE        = "cue"
	SourceNotation   = "notation"
	SourceDefinition = "definition"
)

// LoadResult is a compiled contract ready to deploy.
type LoadResult struct {
	Source     string
	Expr       *compiler.Expr
	Definition []int64
	Findings   []compiler.ValidationError
}

// LoadError represents an error that occurred while loading a contract.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadContract compiles a contract from arg, which is one of:
//
//   - a path to a .cue document
//   - a path to any other file holding prefix notation
//   - a JSON integer array holding a raw definition
//   - prefix notation given inline
//
// Validation findings are returned with the result; a contract with
// error-severity findings is still returned so callers can report them.
func LoadContract(arg string) (*LoadResult, error) {
	src, source, filename, err := readContract(arg)
	if err != nil {
		return nil, err
	}

	res := &LoadResult{Source: source}
	switch source {
	case SourceCUE:
		res.Expr, err = compiler.CompileCUE(src, filename)
	case SourceDefinition:
		var def []int64
		if jerr := json.Unmarshal(src, &def); jerr != nil {
			return nil, &LoadError{Code: ErrCodeCompile, Message: fmt.Sprintf("definition must be a JSON integer array: %v", jerr)}
		}
		res.Expr, err = compiler.Decompile(def)
	default:
		res.Expr, err = compiler.Parse(string(src))
	}
	if err != nil {
		var cerr *compiler.CompileError
		if errors.As(err, &cerr) {
			return nil, &LoadError{Code: ErrCodeCompile, Message: cerr.Field + ": " + cerr.Message, Pos: cerr.Pos}
		}
		return nil, &LoadError{Code: ErrCodeCompile, Message: err.Error()}
	}

	res.Findings = compiler.Validate(res.Expr)
	if !compiler.HasErrors(res.Findings) {
		res.Definition = res.Expr.Definition()
	}
	return res, nil
}

func readContract(arg string) (src []byte, source, filename string, err error) {
	trimmed := strings.TrimSpace(arg)
	if trimmed == "" {
		return nil, "", "", &LoadError{Code: ErrCodeGeneric, Message: "contract is required"}
	}
	if strings.HasPrefix(trimmed, "[") {
		return []byte(trimmed), SourceDefinition, "", nil
	}

	info, statErr := os.Stat(arg)
	switch {
	case statErr == nil && info.IsDir():
		return nil, "", "", &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a contract file: %s", arg)}
	case statErr == nil:
		data, rerr := os.ReadFile(arg)
		if rerr != nil {
			return nil, "", "", &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error reading contract: %v", rerr)}
		}
		if strings.EqualFold(filepath.Ext(arg), ".cue") {
			return data, SourceCUE, arg, nil
		}
		return data, SourceNotation, arg, nil
	case strings.EqualFold(filepath.Ext(arg), ".cue"):
		return nil, "", "", &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("contract file not found: %s", arg)}
	}
	return []byte(arg), SourceNotation, "", nil
}
