package bundle

const (
	defaultGitOriginURL = "https://github.com/your-org/your-repo.git"
	defaultGitBranch    = "main"
	unknownUser         = "unknown_user"
)

// promotionTargets are added after the selected target when it is "dev".
var promotionTargets = []struct {
	name        string
	mode        string
	variable    string
	description string
}{
	{"staging", "development", "staging_workspace_host", "Staging workspace host URL"},
	{"prod", "production", "prod_workspace_host", "Production workspace host URL"},
}

// envelope builds the bundle, variables and targets sections of a full-mode
// document. The caller appends resources.
func (t *Translator) envelope(bundleName, workflowName string) *Document {
	root := NewDocument()
	root.Set("bundle", NewDocument().
		Set("name", bundleName).
		Set("description", "Asset bundle for workflow: "+workflowName).
		Set("git", NewDocument().
			Set("origin_url", "${var.git_origin_url}").
			Set("branch", "${var.git_branch}")))

	root.Set("variables", NewDocument().
		Set("git_origin_url", NewDocument().
			Set("description", "Git repository origin URL").
			Set("default", orDefault(t.opts.GitOriginURL, defaultGitOriginURL))).
		Set("git_branch", NewDocument().
			Set("description", "Git branch to use").
			Set("default", orDefault(t.opts.GitBranch, defaultGitBranch))))

	env := t.opts.TargetEnv
	user := orDefault(t.opts.CurrentUser, unknownUser)
	mode := "production"
	if env == "dev" {
		mode = "development"
	}

	targets := NewDocument()
	targets.Set(env, NewDocument().
		Set("mode", mode).
		Set("default", env == "dev").
		Set("workspace", NewDocument().
			Set("host", "${var.workspace_host}").
			Set("current_user", NewDocument().Set("user_name", user))).
		Set("variables", NewDocument().
			Set("workspace_host", NewDocument().
				Set("description", "Databricks workspace host URL").
				Set("default", t.opts.WorkspaceHost))))

	if env == "dev" {
		for _, p := range promotionTargets {
			targets.Set(p.name, NewDocument().
				Set("mode", p.mode).
				Set("workspace", NewDocument().Set("host", "${var."+p.variable+"}")).
				Set("variables", NewDocument().
					Set(p.variable, NewDocument().Set("description", p.description))))
		}
	}
	root.Set("targets", targets)
	return root
}
