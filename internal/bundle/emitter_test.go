package bundle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/dabops/internal/workflow"
)

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func splitArtifact(t *testing.T, text string) (header []string, body string) {
	t.Helper()
	idx := strings.Index(text, "\n\n")
	require.GreaterOrEqual(t, idx, 0, "no blank line in artifact")
	header = strings.Split(text[:idx], "\n")
	body = text[idx+2:]
	return header, body
}

func TestSerializeHeaderBothModes(t *testing.T) {
	em := NewEmitter(quietLogger())

	for _, mode := range []Mode{ModeFull, ModeResourcesOnly} {
		t.Run(string(mode), func(t *testing.T) {
			tr := newTestTranslator(Options{}, nil)
			detail := nightlySync()
			doc, err := tr.Translate(context.Background(), detail, Request{Mode: mode, BundleName: "sync"})
			require.NoError(t, err)

			text, err := em.Serialize(doc, NewHeader(mode, doc, detail.Summary, fixedTime))
			require.NoError(t, err)

			header, body := splitArtifact(t, text)
			for _, line := range header {
				assert.True(t, strings.HasPrefix(line, "#"), "header line %q", line)
			}
			assert.NotEmpty(t, body)
			assert.False(t, strings.HasPrefix(body, "\n"), "more than one blank line before body")
			assert.False(t, strings.HasPrefix(body, "#"))
			assert.Contains(t, header[1], "2024-01-02T03:04:05Z")
		})
	}
}

func TestSerializeHeaderContent(t *testing.T) {
	em := NewEmitter(quietLogger())
	tr := newTestTranslator(Options{}, nil)
	detail := nightlySync()

	full, err := tr.Translate(context.Background(), detail, Request{Mode: ModeFull, BundleName: "sync"})
	require.NoError(t, err)
	text, err := em.Serialize(full, NewHeader(ModeFull, full, detail.Summary, fixedTime))
	require.NoError(t, err)
	header, _ := splitArtifact(t, text)
	assert.Equal(t, []string{
		"# Databricks Asset Bundle Configuration",
		"# Generated on: 2024-01-02T03:04:05Z",
		"# Bundle: sync",
		"# Description: Asset bundle for workflow: Nightly Sync",
	}, header)

	res, err := tr.Translate(context.Background(), detail, Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)
	text, err = em.Serialize(res, NewHeader(ModeResourcesOnly, res, detail.Summary, fixedTime))
	require.NoError(t, err)
	header, _ = splitArtifact(t, text)
	assert.Equal(t, []string{
		"# Databricks Asset Bundle Resources",
		"# Generated on: 2024-01-02T03:04:05Z",
		"# Workflow: Nightly Sync",
		"# Job ID: 42",
		"# Contains only the 'resources:' section for this workflow",
	}, header)
}

func TestSerializeScenarioBody(t *testing.T) {
	em := NewEmitter(quietLogger())
	tr := newTestTranslator(Options{}, nil)
	detail := nightlySync()
	doc, err := tr.Translate(context.Background(), detail, Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)

	text, err := em.Serialize(doc, NewHeader(ModeResourcesOnly, doc, detail.Summary, fixedTime))
	require.NoError(t, err)
	_, body := splitArtifact(t, text)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(body), &got))
	want := map[string]any{
		"resources": map[string]any{
			"jobs": map[string]any{
				"nightly_sync": map[string]any{
					"name": "Nightly Sync",
					"tasks": []any{
						map[string]any{
							"task_key": "t1",
							"notebook_task": map[string]any{
								"notebook_path": "/x",
								"source":        "WORKSPACE",
							},
						},
					},
				},
			},
		},
	}
	assert.Equal(t, want, got)

	assert.NotContains(t, body, "{")
	assert.NotContains(t, body, "null")
	assert.Contains(t, body, "\n  jobs:\n")
}

func TestSerializeKeepsInsertionOrder(t *testing.T) {
	em := NewEmitter(quietLogger())
	tr := newTestTranslator(Options{}, nil)
	detail := nightlySync()
	doc, err := tr.Translate(context.Background(), detail, Request{Mode: ModeFull})
	require.NoError(t, err)

	text, err := em.Serialize(doc, NewHeader(ModeFull, doc, detail.Summary, fixedTime))
	require.NoError(t, err)

	last := -1
	for _, key := range []string{"\nbundle:", "\nvariables:", "\ntargets:", "\nresources:"} {
		idx := strings.Index(text, key)
		require.Greater(t, idx, last, "key %s out of order", key)
		last = idx
	}
	dev := strings.Index(text, "\n  dev:")
	staging := strings.Index(text, "\n  staging:")
	prod := strings.Index(text, "\n  prod:")
	assert.True(t, dev < staging && staging < prod)
}

func TestSerializeKeepsServiceMapOrder(t *testing.T) {
	job, err := workflow.DecodeJob([]byte(`{
		"job_id": 3,
		"settings": {
			"name": "ordered",
			"tags": {"zeta": "1", "alpha": "2"},
			"tasks": [{
				"task_key": "t",
				"notebook_task": {"notebook_path": "/n", "base_parameters": {"run_date": "today", "env": "prod"}},
				"new_cluster": {"spark_version": "14.3", "spark_conf": {"spark.sql.shuffle.partitions": "8", "spark.databricks.delta.preview.enabled": "true"}}
			}]
		}
	}`))
	require.NoError(t, err)
	detail := job.Detail(nil)

	em := NewEmitter(quietLogger())
	tr := newTestTranslator(Options{}, nil)
	doc, err := tr.Translate(context.Background(), detail, Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)
	text, err := em.Serialize(doc, NewHeader(ModeResourcesOnly, doc, detail.Summary, fixedTime))
	require.NoError(t, err)

	for _, pair := range [][2]string{
		{"zeta: \"1\"", "alpha: \"2\""},
		{"run_date: today", "env: prod"},
		{"spark.sql.shuffle.partitions", "spark.databricks.delta.preview.enabled"},
	} {
		first := strings.Index(text, pair[0])
		second := strings.Index(text, pair[1])
		require.GreaterOrEqual(t, first, 0, "missing %s", pair[0])
		assert.Less(t, first, second, "%s should precede %s", pair[0], pair[1])
	}
}

func TestSerializeEmptyPayloadKeepsTaskKind(t *testing.T) {
	em := NewEmitter(quietLogger())
	tr := newTestTranslator(Options{}, nil)
	detail := nightlySync()
	detail.Settings.Tasks = []workflow.Task{{Key: "submit", Payload: workflow.SparkSubmitTask{}}}

	doc, err := tr.Translate(context.Background(), detail, Request{Mode: ModeResourcesOnly})
	require.NoError(t, err)
	text, err := em.Serialize(doc, NewHeader(ModeResourcesOnly, doc, detail.Summary, fixedTime))
	require.NoError(t, err)
	_, body := splitArtifact(t, text)

	assert.Contains(t, body, "spark_submit_task: {}\n")
	assert.NotContains(t, body, "null")

	var got struct {
		Resources struct {
			Jobs map[string]struct {
				Tasks []map[string]any `yaml:"tasks"`
			} `yaml:"jobs"`
		} `yaml:"resources"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(body), &got))
	task := got.Resources.Jobs["nightly_sync"].Tasks[0]
	assert.Equal(t, map[string]any{}, task["spark_submit_task"])
}

func TestHeaderFlattensLineBreaks(t *testing.T) {
	em := NewEmitter(quietLogger())
	doc := NewDocument().Set("resources", NewDocument().Set("jobs", NewDocument().Set("x", NewDocument().Set("name", "x"))))

	for _, h := range []Header{
		{Mode: ModeResourcesOnly, GeneratedAt: fixedTime, WorkflowName: "evil\nname: injected", JobID: 1},
		{Mode: ModeFull, GeneratedAt: fixedTime, BundleName: "b\r\nx", BundleDescription: "line one\rline two\n"},
	} {
		text, err := em.Serialize(doc, h)
		require.NoError(t, err)
		header, body := splitArtifact(t, text)
		for _, line := range header {
			assert.True(t, strings.HasPrefix(line, "#"), "header line %q", line)
		}
		assert.True(t, strings.HasPrefix(body, "resources:"), "body %q", body)
	}

	assert.Equal(t, "# Workflow: evil name: injected", strings.Split(Header{Mode: ModeResourcesOnly, WorkflowName: "evil\nname: injected"}.Text(), "\n")[2])
}

func TestSerializeQuotesAmbiguousStrings(t *testing.T) {
	em := NewEmitter(quietLogger())
	doc := NewDocument().
		Set("version", "123").
		Set("flag", "true").
		Set("ref", "${var.git_branch}")

	text, err := em.Serialize(doc, Header{Mode: ModeFull, GeneratedAt: fixedTime})
	require.NoError(t, err)
	_, body := splitArtifact(t, text)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(body), &got))
	assert.Equal(t, "123", got["version"])
	assert.Equal(t, "true", got["flag"])
	assert.Equal(t, "${var.git_branch}", got["ref"])
}

func TestSerializeFailureReturnsErrorArtifact(t *testing.T) {
	em := NewEmitter(quietLogger())
	doc := NewDocument().Set("bad", make(chan int))

	text, err := em.Serialize(doc, Header{Mode: ModeFull, GeneratedAt: fixedTime})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(text, "# Error generating YAML: "))
	assert.NotContains(t, text, "\n")

	var serr *SerializationError
	assert.True(t, errors.As(err, &serr))

	text, err = em.Serialize(nil, Header{})
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(text, "# Error generating YAML: "))
}
