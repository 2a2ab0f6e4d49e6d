package circleci

import "time"

// Page is the shape shared by every paged list response.
type Page[T any] struct {
	Items         []T    `json:"items" yaml:"items"`
	NextPageToken string `json:"next_page_token,omitempty" yaml:"next_page_token,omitempty"`
}

// Message is the {"message": "..."} acknowledgement many mutations return.
type Message struct {
	Message string `json:"message" yaml:"message"`
}

// Actor identifies who triggered or owns something.
type Actor struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Login     string `json:"login" yaml:"login"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
}

// PipelineError is a config or plan error recorded on a pipeline.
type PipelineError struct {
	Type    string `json:"type" yaml:"type"`
	Message string `json:"message" yaml:"message"`
}

// Trigger describes what started a pipeline.
type Trigger struct {
	Type       string    `json:"type" yaml:"type"`
	ReceivedAt time.Time `json:"received_at" yaml:"received_at"`
	Actor      Actor     `json:"actor" yaml:"actor"`
}

// VCS is the version control information of a pipeline.
type VCS struct {
	ProviderName        string `json:"provider_name,omitempty" yaml:"provider_name,omitempty"`
	OriginRepositoryURL string `json:"origin_repository_url,omitempty" yaml:"origin_repository_url,omitempty"`
	TargetRepositoryURL string `json:"target_repository_url,omitempty" yaml:"target_repository_url,omitempty"`
	Revision            string `json:"revision,omitempty" yaml:"revision,omitempty"`
	Branch              string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Tag                 string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Commit              *struct {
		Subject string `json:"subject" yaml:"subject"`
		Body    string `json:"body" yaml:"body"`
	} `json:"commit,omitempty" yaml:"commit,omitempty"`
}

// Pipeline is one CircleCI pipeline.
type Pipeline struct {
	ID          string          `json:"id" yaml:"id"`
	Number      int64           `json:"number" yaml:"number"`
	State       string          `json:"state" yaml:"state"`
	ProjectSlug string          `json:"project_slug" yaml:"project_slug"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Trigger     Trigger         `json:"trigger" yaml:"trigger"`
	VCS         *VCS            `json:"vcs,omitempty" yaml:"vcs,omitempty"`
	Errors      []PipelineError `json:"errors" yaml:"errors"`
}

// PipelineConfig is the source and compiled configuration of a pipeline.
type PipelineConfig struct {
	Source              string `json:"source" yaml:"source"`
	Compiled            string `json:"compiled" yaml:"compiled"`
	SetupConfig         string `json:"setup-config,omitempty" yaml:"setup-config,omitempty"`
	CompiledSetupConfig string `json:"compiled-setup-config,omitempty" yaml:"compiled-setup-config,omitempty"`
}

// PipelineCreation is the response to a pipeline trigger.
type PipelineCreation struct {
	ID        string    `json:"id" yaml:"id"`
	Number    int64     `json:"number" yaml:"number"`
	State     string    `json:"state" yaml:"state"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Workflow is one workflow run of a pipeline.
type Workflow struct {
	ID             string     `json:"id" yaml:"id"`
	Name           string     `json:"name" yaml:"name"`
	Status         string     `json:"status" yaml:"status"`
	PipelineID     string     `json:"pipeline_id" yaml:"pipeline_id"`
	PipelineNumber int64      `json:"pipeline_number" yaml:"pipeline_number"`
	ProjectSlug    string     `json:"project_slug" yaml:"project_slug"`
	StartedBy      string     `json:"started_by" yaml:"started_by"`
	CreatedAt      time.Time  `json:"created_at" yaml:"created_at"`
	StoppedAt      *time.Time `json:"stopped_at,omitempty" yaml:"stopped_at,omitempty"`
	Tag            string     `json:"tag,omitempty" yaml:"tag,omitempty"`
	CanceledBy     string     `json:"canceled_by,omitempty" yaml:"canceled_by,omitempty"`
	ErroredBy      string     `json:"errored_by,omitempty" yaml:"errored_by,omitempty"`
}

// RerunResult is the response to a workflow rerun.
type RerunResult struct {
	WorkflowID string `json:"workflow_id" yaml:"workflow_id"`
}

// Job is a job as listed under a workflow.
type Job struct {
	ID                string     `json:"id" yaml:"id"`
	Name              string     `json:"name" yaml:"name"`
	Type              string     `json:"type" yaml:"type"`
	Status            string     `json:"status" yaml:"status"`
	JobNumber         *int64     `json:"job_number,omitempty" yaml:"job_number,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	StoppedAt         *time.Time `json:"stopped_at,omitempty" yaml:"stopped_at,omitempty"`
	ApprovalRequestID string     `json:"approval_request_id,omitempty" yaml:"approval_request_id,omitempty"`
	ApprovedBy        string     `json:"approved_by,omitempty" yaml:"approved_by,omitempty"`
	Dependencies      []string   `json:"dependencies" yaml:"dependencies"`
	ProjectSlug       string     `json:"project_slug" yaml:"project_slug"`
	CanceledBy        string     `json:"canceled_by,omitempty" yaml:"canceled_by,omitempty"`
}

// JobDetails is the full record of one job.
type JobDetails struct {
	Name        string     `json:"name" yaml:"name"`
	Number      int64      `json:"number" yaml:"number"`
	Status      string     `json:"status" yaml:"status"`
	WebURL      string     `json:"web_url" yaml:"web_url"`
	Duration    *int64     `json:"duration,omitempty" yaml:"duration,omitempty"`
	Parallelism int        `json:"parallelism" yaml:"parallelism"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	QueuedAt    *time.Time `json:"queued_at,omitempty" yaml:"queued_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty" yaml:"stopped_at,omitempty"`
	Executor    struct {
		Type          string `json:"type,omitempty" yaml:"type,omitempty"`
		ResourceClass string `json:"resource_class" yaml:"resource_class"`
	} `json:"executor" yaml:"executor"`
	Project struct {
		ID   string `json:"id,omitempty" yaml:"id,omitempty"`
		Slug string `json:"slug" yaml:"slug"`
		Name string `json:"name" yaml:"name"`
	} `json:"project" yaml:"project"`
	Pipeline struct {
		ID string `json:"id" yaml:"id"`
	} `json:"pipeline" yaml:"pipeline"`
	LatestWorkflow struct {
		ID   string `json:"id" yaml:"id"`
		Name string `json:"name" yaml:"name"`
	} `json:"latest_workflow" yaml:"latest_workflow"`
	Organization struct {
		Name string `json:"name" yaml:"name"`
	} `json:"organization" yaml:"organization"`
}

// Artifact is a file stored by a job.
type Artifact struct {
	Path      string `json:"path" yaml:"path"`
	NodeIndex int    `json:"node_index" yaml:"node_index"`
	URL       string `json:"url" yaml:"url"`
}

// TestMetadata is one test result recorded by a job.
type TestMetadata struct {
	Message   string  `json:"message" yaml:"message"`
	Source    string  `json:"source" yaml:"source"`
	RunTime   float64 `json:"run_time" yaml:"run_time"`
	File      string  `json:"file" yaml:"file"`
	Result    string  `json:"result" yaml:"result"`
	Name      string  `json:"name" yaml:"name"`
	Classname string  `json:"classname" yaml:"classname"`
}

// Context is a named set of environment variables shared across projects.
type Context struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// EnvironmentVariable is a context variable. The value is never returned.
type EnvironmentVariable struct {
	Variable  string     `json:"variable" yaml:"variable"`
	ContextID string     `json:"context_id" yaml:"context_id"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// ContextRestriction limits which projects or groups may use a context.
type ContextRestriction struct {
	ID               string `json:"id" yaml:"id"`
	ContextID        string `json:"context_id,omitempty" yaml:"context_id,omitempty"`
	ProjectID        string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	Name             string `json:"name,omitempty" yaml:"name,omitempty"`
	RestrictionType  string `json:"restriction_type" yaml:"restriction_type"`
	RestrictionValue string `json:"restriction_value" yaml:"restriction_value"`
}

// Project is a followed repository.
type Project struct {
	ID               string `json:"id" yaml:"id"`
	Slug             string `json:"slug" yaml:"slug"`
	Name             string `json:"name" yaml:"name"`
	OrganizationName string `json:"organization_name" yaml:"organization_name"`
	OrganizationSlug string `json:"organization_slug" yaml:"organization_slug"`
	OrganizationID   string `json:"organization_id" yaml:"organization_id"`
	VCSInfo          struct {
		VCSURL        string `json:"vcs_url" yaml:"vcs_url"`
		Provider      string `json:"provider" yaml:"provider"`
		DefaultBranch string `json:"default_branch" yaml:"default_branch"`
	} `json:"vcs_info" yaml:"vcs_info"`
}

// AdvancedSettings are the project's advanced toggles. Nil fields are
// left unchanged on update.
type AdvancedSettings struct {
	AutocancelBuilds           *bool    `json:"autocancel_builds,omitempty" yaml:"autocancel_builds,omitempty"`
	BuildForkPRs               *bool    `json:"build_fork_prs,omitempty" yaml:"build_fork_prs,omitempty"`
	BuildPRsOnly               *bool    `json:"build_prs_only,omitempty" yaml:"build_prs_only,omitempty"`
	DisableSSH                 *bool    `json:"disable_ssh,omitempty" yaml:"disable_ssh,omitempty"`
	ForksReceiveSecretEnvVars  *bool    `json:"forks_receive_secret_env_vars,omitempty" yaml:"forks_receive_secret_env_vars,omitempty"`
	OSS                        *bool    `json:"oss,omitempty" yaml:"oss,omitempty"`
	PROnlyBranchOverrides      []string `json:"pr_only_branch_overrides,omitempty" yaml:"pr_only_branch_overrides,omitempty"`
	SetGithubStatus            *bool    `json:"set_github_status,omitempty" yaml:"set_github_status,omitempty"`
	SetupWorkflows             *bool    `json:"setup_workflows,omitempty" yaml:"setup_workflows,omitempty"`
	WriteSettingsRequiresAdmin *bool    `json:"write_settings_requires_admin,omitempty" yaml:"write_settings_requires_admin,omitempty"`
}

func (a AdvancedSettings) empty() bool {
	for _, b := range []*bool{
		a.AutocancelBuilds, a.BuildForkPRs, a.BuildPRsOnly, a.DisableSSH, a.ForksReceiveSecretEnvVars,
		a.OSS, a.SetGithubStatus, a.SetupWorkflows, a.WriteSettingsRequiresAdmin,
	} {
		if b != nil {
			return false
		}
	}
	return a.PROnlyBranchOverrides == nil
}

// ProjectSettings wraps the advanced settings block.
type ProjectSettings struct {
	Advanced AdvancedSettings `json:"advanced" yaml:"advanced"`
}

// CheckoutKey is a deploy or user SSH key attached to a project.
type CheckoutKey struct {
	PublicKey   string    `json:"public-key" yaml:"public-key"`
	Type        string    `json:"type" yaml:"type"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	Preferred   bool      `json:"preferred" yaml:"preferred"`
	CreatedAt   time.Time `json:"created-at" yaml:"created-at"`
}

// ProjectEnvVar is a project environment variable with a masked value.
type ProjectEnvVar struct {
	Name      string     `json:"name" yaml:"name"`
	Value     string     `json:"value" yaml:"value"`
	CreatedAt *time.Time `json:"created-at,omitempty" yaml:"created-at,omitempty"`
}

// Timetable says when a schedule fires.
type Timetable struct {
	PerHour     int      `json:"per-hour" yaml:"per-hour"`
	HoursOfDay  []int    `json:"hours-of-day" yaml:"hours-of-day"`
	DaysOfWeek  []string `json:"days-of-week,omitempty" yaml:"days-of-week,omitempty"`
	DaysOfMonth []int    `json:"days-of-month,omitempty" yaml:"days-of-month,omitempty"`
	Months      []string `json:"months,omitempty" yaml:"months,omitempty"`
}

// Schedule is a scheduled pipeline trigger.
type Schedule struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	ProjectSlug string         `json:"project-slug" yaml:"project-slug"`
	Timetable   Timetable      `json:"timetable" yaml:"timetable"`
	Parameters  map[string]any `json:"parameters" yaml:"parameters"`
	Actor       Actor          `json:"actor" yaml:"actor"`
	CreatedAt   time.Time      `json:"created-at" yaml:"created-at"`
	UpdatedAt   time.Time      `json:"updated-at" yaml:"updated-at"`
}

// WebhookScope is what a webhook listens to.
type WebhookScope struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"`
}

// Webhook is an outbound webhook subscription.
type Webhook struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	URL           string       `json:"url" yaml:"url"`
	Events        []string     `json:"events" yaml:"events"`
	VerifyTLS     bool         `json:"verify-tls" yaml:"verify-tls"`
	SigningSecret string       `json:"signing-secret" yaml:"signing-secret"`
	Scope         WebhookScope `json:"scope" yaml:"scope"`
	CreatedAt     time.Time    `json:"created-at" yaml:"created-at"`
	UpdatedAt     time.Time    `json:"updated-at" yaml:"updated-at"`
}

// ClaimResponse holds the custom OIDC claims of an org or project.
type ClaimResponse struct {
	OrgID             string     `json:"org_id" yaml:"org_id"`
	ProjectID         string     `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	Audience          []string   `json:"audience,omitempty" yaml:"audience,omitempty"`
	TTL               string     `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	AudienceUpdatedAt *time.Time `json:"audience_updated_at,omitempty" yaml:"audience_updated_at,omitempty"`
	TTLUpdatedAt      *time.Time `json:"ttl_updated_at,omitempty" yaml:"ttl_updated_at,omitempty"`
}

// Decision is the outcome of evaluating policies against an input.
type Decision struct {
	Status       string      `json:"status" yaml:"status"`
	EnabledRules []string    `json:"enabled_rules,omitempty" yaml:"enabled_rules,omitempty"`
	HardFailures []Violation `json:"hard_failures,omitempty" yaml:"hard_failures,omitempty"`
	SoftFailures []Violation `json:"soft_failures,omitempty" yaml:"soft_failures,omitempty"`
	Reason       string      `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Violation is one failing rule.
type Violation struct {
	Rule   string `json:"rule" yaml:"rule"`
	Reason string `json:"reason" yaml:"reason"`
}

// DecisionLog is a recorded policy decision.
type DecisionLog struct {
	ID          string            `json:"id" yaml:"id"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	Decision    Decision          `json:"decision" yaml:"decision"`
	Metadata    map[string]any    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Policies    map[string]string `json:"policies,omitempty" yaml:"policies,omitempty"`
	TimeTakenMS int64             `json:"time_taken_ms" yaml:"time_taken_ms"`
}

// DecisionSettings toggles policy evaluation for an owner.
type DecisionSettings struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Policy is one policy document.
type Policy struct {
	Name      string    `json:"name" yaml:"name"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	CreatedBy string    `json:"created_by" yaml:"created_by"`
}

// PolicyBundle maps policy names to their documents.
type PolicyBundle map[string][]Policy

// BundleDiff reports what a bundle upload changed.
type BundleDiff struct {
	Created  []string `json:"created,omitempty" yaml:"created,omitempty"`
	Deleted  []string `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Modified []string `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// Usage export job states.
const (
	ExportCreated    = "created"
	ExportProcessing = "processing"
	ExportCompleted  = "completed"
	ExportFailed     = "failed"
)

// UsageExportJob is an asynchronous usage report.
type UsageExportJob struct {
	ID           string    `json:"usage_export_job_id" yaml:"usage_export_job_id"`
	State        string    `json:"state" yaml:"state"`
	Start        time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End          time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	DownloadURLs []string  `json:"download_urls" yaml:"download_urls"`
	ErrorReason  string    `json:"error_reason,omitempty" yaml:"error_reason,omitempty"`
}

// Done reports whether the job reached a final state.
func (j *UsageExportJob) Done() bool {
	return j.State == ExportCompleted || j.State == ExportFailed
}

// User is a CircleCI user.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Login string `json:"login" yaml:"login"`
	Name  string `json:"name" yaml:"name"`
}

// Collaboration is an organization the current user belongs to.
type Collaboration struct {
	ID        string `json:"id" yaml:"id"`
	VCSType   string `json:"vcs-type" yaml:"vcs-type"`
	Name      string `json:"name" yaml:"name"`
	Slug      string `json:"slug" yaml:"slug"`
	AvatarURL string `json:"avatar_url" yaml:"avatar_url"`
}
