// Package runinfo captures CI and host metadata stored in dataset summaries.
package runinfo

import (
	"os"
	"regexp"
	"runtime"
	"strings"
)

var pullRefPattern = regexp.MustCompile(`^refs/pull/([0-9]+)/`)

// BasicInfo describes where a dataset was generated.
type BasicInfo struct {
	CI          bool   `json:"ci,omitempty" yaml:"ci,omitempty"`
	Provider    string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Repository  string `json:"repository,omitempty" yaml:"repository,omitempty"`
	Branch      string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Commit      string `json:"commit,omitempty" yaml:"commit,omitempty"`
	RunID       string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	PullRequest string `json:"pull_request,omitempty" yaml:"pull_request,omitempty"`
	BuildURL    string `json:"build_url,omitempty" yaml:"build_url,omitempty"`
	Host        string `json:"host,omitempty" yaml:"host,omitempty"`
	GoVersion   string `json:"go_version,omitempty" yaml:"go_version,omitempty"`
}

// provider maps a CI system's marker variable to the variables holding
// each metadata field. The first non-empty variable wins.
type provider struct {
	name       string
	marker     string
	repository []string
	branch     []string
	commit     []string
	runID      []string
	pull       []string
	buildURL   []string
}

var providers = []provider{
	{
		name:       "github_actions",
		marker:     "GITHUB_ACTIONS",
		repository: []string{"GITHUB_REPOSITORY"},
		branch:     []string{"GITHUB_HEAD_REF", "GITHUB_REF_NAME"},
		commit:     []string{"GITHUB_SHA"},
		runID:      []string{"GITHUB_RUN_ID"},
		pull:       []string{"GITHUB_PR_NUMBER"},
	},
	{
		name:       "gitlab_ci",
		marker:     "GITLAB_CI",
		repository: []string{"CI_PROJECT_PATH"},
		branch:     []string{"CI_COMMIT_REF_NAME"},
		commit:     []string{"CI_COMMIT_SHA"},
		runID:      []string{"CI_PIPELINE_ID"},
		pull:       []string{"CI_MERGE_REQUEST_IID"},
		buildURL:   []string{"CI_JOB_URL"},
	},
	{
		name:     "buildkite",
		marker:   "BUILDKITE",
		branch:   []string{"BUILDKITE_BRANCH"},
		commit:   []string{"BUILDKITE_COMMIT"},
		runID:    []string{"BUILDKITE_BUILD_ID"},
		pull:     []string{"BUILDKITE_PULL_REQUEST"},
		buildURL: []string{"BUILDKITE_BUILD_URL"},
	},
	{
		name:     "jenkins",
		marker:   "JENKINS_URL",
		branch:   []string{"BRANCH_NAME", "GIT_BRANCH"},
		commit:   []string{"GIT_COMMIT"},
		runID:    []string{"BUILD_ID"},
		pull:     []string{"CHANGE_ID"},
		buildURL: []string{"BUILD_URL"},
	},
}

// FromEnv builds run metadata from environment variables. Explicit
// ROWSYNTH_CI_* values take precedence over provider defaults. The host
// name and Go version are always recorded.
func FromEnv() *BasicInfo {
	info := BasicInfo{}
	for _, p := range providers {
		if !present(p.marker) {
			continue
		}
		info.CI = true
		info.Provider = p.name
		info.Repository = envFirst(p.repository...)
		info.Branch = envFirst(p.branch...)
		info.Commit = envFirst(p.commit...)
		info.RunID = envFirst(p.runID...)
		info.PullRequest = envFirst(p.pull...)
		info.BuildURL = envFirst(p.buildURL...)
		break
	}
	if info.Provider == "github_actions" {
		if info.PullRequest == "" {
			info.PullRequest = pullRequestFromRef(env("GITHUB_REF"))
		}
		if info.Repository != "" && info.RunID != "" {
			server := env("GITHUB_SERVER_URL")
			if server == "" {
				server = "https://github.com"
			}
			info.BuildURL = strings.TrimRight(server, "/") + "/" + info.Repository + "/actions/runs/" + info.RunID
		}
	}
	if isTruthy(env("CI")) {
		info.CI = true
	}
	applyOverrides(&info)
	info.Branch = strings.TrimPrefix(strings.TrimPrefix(info.Branch, "refs/heads/"), "origin/")
	if info.CI && info.Provider == "" {
		info.Provider = "generic"
	}
	info.Host, _ = os.Hostname()
	info.GoVersion = runtime.Version()
	return &info
}

func applyOverrides(info *BasicInfo) {
	overrides := []struct {
		dst *string
		key string
	}{
		{&info.Provider, "ROWSYNTH_CI_PROVIDER"},
		{&info.Repository, "ROWSYNTH_CI_REPOSITORY"},
		{&info.Branch, "ROWSYNTH_CI_BRANCH"},
		{&info.Commit, "ROWSYNTH_CI_COMMIT"},
		{&info.RunID, "ROWSYNTH_CI_RUN_ID"},
		{&info.PullRequest, "ROWSYNTH_CI_PULL_REQUEST"},
		{&info.BuildURL, "ROWSYNTH_CI_BUILD_URL"},
	}
	explicit := false
	for _, o := range overrides {
		if v := env(o.key); v != "" {
			*o.dst = v
			explicit = true
		}
	}
	if v := env("ROWSYNTH_CI"); v != "" {
		info.CI = isTruthy(v)
		return
	}
	if explicit {
		info.CI = true
	}
}

func pullRequestFromRef(ref string) string {
	m := pullRefPattern.FindStringSubmatch(ref)
	if len(m) > 1 {
		return m[1]
	}
	return ""
}

func present(key string) bool {
	v := env(key)
	if key == "JENKINS_URL" {
		return v != ""
	}
	return isTruthy(v)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if value := env(key); value != "" {
			return value
		}
	}
	return ""
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
