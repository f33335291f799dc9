package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// localBranches lists the branches of the git repository in the working directory.
func localBranches(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "for-each-ref", "--format=%(refname:short)", "refs/heads/")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("failed to list local branches: %s", msg)
		}
		return nil, fmt.Errorf("failed to list local branches: %w", err)
	}
	return parseBranches(string(out)), nil
}

func parseBranches(out string) []string {
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		if b := strings.TrimSpace(line); b != "" {
			branches = append(branches, b)
		}
	}
	return branches
}

// branchFilter accepts only the given branches.
func branchFilter(branches []string) func(string) bool {
	set := make(map[string]bool, len(branches))
	for _, b := range branches {
		set[b] = true
	}
	return func(branch string) bool { return set[branch] }
}
