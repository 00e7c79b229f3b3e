package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/polywasm/policyhost/bundle"
	"github.com/polywasm/policyhost/internal/value"
	"github.com/polywasm/policyhost/runtime"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flags struct {
	modulePath string
	bundlePath string
	entrypoint string
	dataJSON   string
	dataPath   string
	inputJSON  string
	inputPath  string
	poolSize   uint32
	strict     bool
}

func rootCommand() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "policyhost",
		Short: "Evaluate a compiled policy module against a single entrypoint",
		Long: `policyhost loads a compiled policy WebAssembly module (standalone or
packaged in a bundle), attaches a data document, evaluates one entrypoint
against an input document, and prints the result as JSON.

Examples
--------

	$ policyhost --module policy.wasm --entrypoint example/allow --input-path input.json
	$ policyhost --bundle bundle.tar.gz --entrypoint example/allow --data-path data.json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVar(&f.modulePath, "module", "", "path to a standalone compiled policy module (.wasm)")
	cmd.Flags().StringVar(&f.bundlePath, "bundle", "", "path to a bundle archive (.tar.gz) containing policy.wasm and an optional data.json")
	cmd.Flags().StringVar(&f.entrypoint, "entrypoint", "", "entrypoint name to evaluate (required)")
	cmd.Flags().StringVar(&f.dataJSON, "data", "", "inline JSON data document")
	cmd.Flags().StringVar(&f.dataPath, "data-path", "", "path to a JSON data document")
	cmd.Flags().StringVar(&f.inputJSON, "input", "", "inline JSON input document")
	cmd.Flags().StringVar(&f.inputPath, "input-path", "", "path to a JSON input document")
	cmd.Flags().Uint32Var(&f.poolSize, "pool-size", 0, "number of VM instances to keep ready (default: GOMAXPROCS)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "abort evaluation on a built-in the module calls but this host has no handler for (default: treat it as undefined)")
	cmd.MarkFlagsMutuallyExclusive("module", "bundle")
	cmd.MarkFlagsMutuallyExclusive("data", "data-path")
	cmd.MarkFlagsMutuallyExclusive("input", "input-path")

	return cmd
}

func run(ctx context.Context, f flags) error {
	if f.entrypoint == "" {
		return fmt.Errorf("policyhost: --entrypoint is required")
	}

	policy, data, err := loadModuleAndData(f)
	if err != nil {
		return err
	}

	rt := runtime.New(runtime.WithPoolSize(f.poolSize), runtime.WithStrict(f.strict))
	defer rt.Close(ctx)

	if err := rt.Load(ctx, policy); err != nil {
		return fmt.Errorf("policyhost: %w", err)
	}

	if data.Kind() != value.KindNull || f.dataJSON != "" || f.dataPath != "" {
		if err := rt.WithData(ctx, data); err != nil {
			return fmt.Errorf("policyhost: %w", err)
		}
	}

	input, err := readValue(f.inputJSON, f.inputPath)
	if err != nil {
		return fmt.Errorf("policyhost: reading input: %w", err)
	}

	result, err := rt.Evaluate(ctx, f.entrypoint, input)
	if err != nil {
		return fmt.Errorf("policyhost: %w", err)
	}

	return printResult(result)
}

func loadModuleAndData(f flags) ([]byte, value.Value, error) {
	switch {
	case f.bundlePath != "":
		archive, err := os.Open(f.bundlePath)
		if err != nil {
			return nil, value.Value{}, fmt.Errorf("policyhost: opening bundle: %w", err)
		}
		defer archive.Close()

		b, err := bundle.Load(archive)
		if err != nil {
			return nil, value.Value{}, fmt.Errorf("policyhost: %w", err)
		}

		data := value.Null()
		if b.Data != nil {
			encoded, err := json.Marshal(b.Data)
			if err != nil {
				return nil, value.Value{}, fmt.Errorf("policyhost: re-encoding bundle data: %w", err)
			}
			data, err = value.Decode(encoded)
			if err != nil {
				return nil, value.Value{}, fmt.Errorf("policyhost: decoding bundle data: %w", err)
			}
		}

		dataValue := data
		if f.dataJSON != "" || f.dataPath != "" {
			var err error
			dataValue, err = readValue(f.dataJSON, f.dataPath)
			if err != nil {
				return nil, value.Value{}, fmt.Errorf("policyhost: reading data: %w", err)
			}
		}
		return b.Policy, dataValue, nil

	case f.modulePath != "":
		policy, err := os.ReadFile(f.modulePath)
		if err != nil {
			return nil, value.Value{}, fmt.Errorf("policyhost: reading module: %w", err)
		}
		data, err := readValue(f.dataJSON, f.dataPath)
		if err != nil {
			return nil, value.Value{}, fmt.Errorf("policyhost: reading data: %w", err)
		}
		return policy, data, nil

	default:
		return nil, value.Value{}, fmt.Errorf("policyhost: one of --module or --bundle is required")
	}
}

func readValue(inline, path string) (value.Value, error) {
	switch {
	case inline != "":
		return value.Decode([]byte(inline))
	case path != "":
		raw, err := os.ReadFile(path)
		if err != nil {
			return value.Value{}, err
		}
		return value.Decode(raw)
	default:
		return value.Null(), nil
	}
}

func printResult(v value.Value) error {
	text, err := value.Encode(v)
	if err != nil {
		return fmt.Errorf("policyhost: encoding result: %w", err)
	}
	fmt.Println(text)
	return nil
}
