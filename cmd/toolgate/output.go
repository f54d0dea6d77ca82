package main

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"toolgate/internal/domain"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func writeYAML(value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func writeStructured(opts *cliOptions, value any) error {
	if opts.yamlOutput {
		return writeYAML(value)
	}
	return writeJSON(value)
}

func printToolResult(result domain.ToolResult, opts *cliOptions) error {
	if opts.jsonOutput || opts.yamlOutput {
		return writeStructured(opts, result)
	}
	if result.IsError {
		fmt.Printf("tool error: %s\n", result.ErrorMessage)
		return nil
	}
	fmt.Println(result.Content)
	return nil
}

func printToolInfos(serverType domain.ServerType, tools []domain.ToolInfo, opts *cliOptions) error {
	if opts.jsonOutput || opts.yamlOutput {
		return writeStructured(opts, map[string]any{
			"server": serverType,
			"tools":  tools,
		})
	}
	fmt.Printf("server=%s tools=%d\n", serverType, len(tools))
	for _, tool := range tools {
		fmt.Println(tool.Name)
	}
	return nil
}

func printFallbackStatus(status domain.FallbackStatus, opts *cliOptions) error {
	if opts.jsonOutput || opts.yamlOutput {
		return writeStructured(opts, status)
	}
	fmt.Printf("chain=%d available=%d failed=%d\n", status.ChainLength, len(status.Available), len(status.FailedKeys))
	for _, description := range status.Available {
		fmt.Println(description)
	}
	return nil
}

func printCallRecords(records []domain.CallRecord, opts *cliOptions) error {
	if opts.jsonOutput || opts.yamlOutput {
		return writeStructured(opts, records)
	}
	for _, rec := range records {
		status := "ok"
		if rec.IsError {
			status = "error"
		}
		fmt.Printf("%s\t%s/%s\t%dms\t%s\n",
			rec.At.Format(time.RFC3339), rec.ServerType, rec.ToolName, rec.DurationMs, status)
	}
	return nil
}
