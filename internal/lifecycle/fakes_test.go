package lifecycle

import (
	"context"

	"github.com/rererecursive/hl-component-cloudfront/internal/cloudfront"
	"github.com/rererecursive/hl-component-cloudfront/internal/signal"
)

type fakeDistributions struct {
	createConfig map[string]any
	createTags   []cloudfront.Tag
	createRecord cloudfront.Record
	createErr    error
	createCalls  int

	getRecord cloudfront.Record
	getErr    error
	getCalls  int

	getConfigConfig map[string]any
	getConfigETag   string
	getConfigErr    error
	getConfigCalls  int

	updateID     string
	updateConfig map[string]any
	updateETag   string
	updateRecord cloudfront.Record
	updateErr    error
	updateCalls  int

	deleteID    string
	deleteETag  string
	deleteErr   error
	deleteCalls int

	tagARN   string
	tagTags  []cloudfront.Tag
	tagErr   error
	tagCalls int
}

func (f *fakeDistributions) Create(ctx context.Context, config map[string]any, tags []cloudfront.Tag) (cloudfront.Record, error) {
	f.createCalls++
	f.createConfig = config
	f.createTags = tags
	return f.createRecord, f.createErr
}

func (f *fakeDistributions) Get(ctx context.Context, id string) (cloudfront.Record, error) {
	f.getCalls++
	return f.getRecord, f.getErr
}

func (f *fakeDistributions) GetConfig(ctx context.Context, id string) (map[string]any, string, error) {
	f.getConfigCalls++
	config := make(map[string]any, len(f.getConfigConfig))
	for k, v := range f.getConfigConfig {
		config[k] = v
	}
	return config, f.getConfigETag, f.getConfigErr
}

func (f *fakeDistributions) Update(ctx context.Context, id string, config map[string]any, etag string) (cloudfront.Record, error) {
	f.updateCalls++
	f.updateID = id
	f.updateConfig = config
	f.updateETag = etag
	return f.updateRecord, f.updateErr
}

func (f *fakeDistributions) Delete(ctx context.Context, id, etag string) error {
	f.deleteCalls++
	f.deleteID = id
	f.deleteETag = etag
	return f.deleteErr
}

func (f *fakeDistributions) Tag(ctx context.Context, arn string, tags []cloudfront.Tag) error {
	f.tagCalls++
	f.tagARN = arn
	f.tagTags = tags
	return f.tagErr
}

type trigger struct {
	name    string
	cadence string
}

type target struct {
	rule        string
	functionARN string
	id          string
	payload     any
}

type fakeScheduler struct {
	upserts   []trigger
	targets   []target
	disabled  []string
	removed   []target
	upsertErr error
	targetErr error
}

func (f *fakeScheduler) UpsertTrigger(ctx context.Context, name, cadence string) error {
	f.upserts = append(f.upserts, trigger{name: name, cadence: cadence})
	return f.upsertErr
}

func (f *fakeScheduler) SetTarget(ctx context.Context, triggerName, functionARN, id string, payload any) error {
	f.targets = append(f.targets, target{rule: triggerName, functionARN: functionARN, id: id, payload: payload})
	return f.targetErr
}

func (f *fakeScheduler) DisableTrigger(ctx context.Context, name string) error {
	f.disabled = append(f.disabled, name)
	return nil
}

func (f *fakeScheduler) RemoveTarget(ctx context.Context, triggerName, id string) error {
	f.removed = append(f.removed, target{rule: triggerName, id: id})
	return nil
}

type emitted struct {
	target     signal.Target
	physicalID string
	data       map[string]any
	noEcho     bool
	reason     string
}

type fakeEmitter struct {
	successes []emitted
	failures  []emitted
}

func (f *fakeEmitter) Success(ctx context.Context, target signal.Target, physicalID string, data map[string]any, noEcho bool) error {
	f.successes = append(f.successes, emitted{target: target, physicalID: physicalID, data: data, noEcho: noEcho})
	return nil
}

func (f *fakeEmitter) Failure(ctx context.Context, target signal.Target, physicalID, reason string) error {
	f.failures = append(f.failures, emitted{target: target, physicalID: physicalID, reason: reason})
	return nil
}

func newTestController() (*Controller, *fakeDistributions, *fakeScheduler, *fakeEmitter) {
	distributions := &fakeDistributions{}
	sched := &fakeScheduler{}
	emitter := &fakeEmitter{}
	return &Controller{
		Distributions: distributions,
		Scheduler:     sched,
		Emitter:       emitter,
	}, distributions, sched, emitter
}
