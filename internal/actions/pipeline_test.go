package actions

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"actionScope/internal/model"
)

type deleteCall struct {
	txHashes  []string
	protocols []string
}

type fakeDeleter struct {
	calls []deleteCall
	err   error
}

func (f *fakeDeleter) DeleteActions(_ context.Context, txHashes []string, protocols []string) error {
	f.calls = append(f.calls, deleteCall{txHashes: txHashes, protocols: protocols})
	return f.err
}

func testPipeline(t *testing.T, deleter ActionDeleter) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(PipelineConfig{
		Deleter:        deleter,
		GolemBaseChain: 600,
	})
	if err != nil {
		t.Fatal(err)
	}
	return pipeline
}

func ledgerBatch(t *testing.T) []model.LogRecord {
	t.Helper()
	log := buildLog(t, ledgerContract, ledgerEvent(t, "GolemBaseStorageEntityCreated"),
		[]string{entityKeyTopic}, big.NewInt(999),
	)
	return []model.LogRecord{log}
}

func TestPipelineDecodesLedgerBatch(t *testing.T) {
	pipeline := testPipeline(t, nil)
	actions, err := pipeline.Run(context.Background(), ledgerBatch(t), Options{ChainID: 600})
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 1 || actions[0].Type != model.ActionEntityCreated {
		t.Fatalf("got %+v, want one entity_created action", actions)
	}
}

func TestPipelineChainGate(t *testing.T) {
	pipeline := testPipeline(t, nil)
	actions, err := pipeline.Run(context.Background(), ledgerBatch(t), Options{ChainID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 0 {
		t.Fatalf("wrong chain must decode nothing, got %+v", actions)
	}
}

func TestPipelineProtocolSelection(t *testing.T) {
	pipeline := testPipeline(t, nil)
	actions, err := pipeline.Run(context.Background(), ledgerBatch(t), Options{
		ChainID:   600,
		Protocols: []model.Protocol{model.ProtocolAave},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 0 {
		t.Fatalf("unselected protocol must decode nothing, got %+v", actions)
	}
}

func TestPipelineRewriteScoped(t *testing.T) {
	deleter := &fakeDeleter{}
	pipeline := testPipeline(t, deleter)

	logs := ledgerBatch(t)
	_, err := pipeline.Run(context.Background(), logs, Options{
		ChainID:          600,
		Rewrite:          true,
		RewriteProtocols: []model.Protocol{model.ProtocolAave},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(deleter.calls) != 1 {
		t.Fatalf("got %d delete calls, want 1", len(deleter.calls))
	}
	call := deleter.calls[0]
	if len(call.protocols) != 1 || call.protocols[0] != "aave" {
		t.Errorf("delete scope wrong: %v", call.protocols)
	}
	if len(call.txHashes) != 1 || call.txHashes[0] != logs[0].TxHash {
		t.Errorf("delete hashes wrong: %v", call.txHashes)
	}
}

func TestPipelineRewriteAllProtocols(t *testing.T) {
	deleter := &fakeDeleter{}
	pipeline := testPipeline(t, deleter)

	_, err := pipeline.Run(context.Background(), ledgerBatch(t), Options{
		ChainID: 600,
		Rewrite: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(deleter.calls) != 1 || len(deleter.calls[0].protocols) != 0 {
		t.Fatalf("unscoped rewrite must delete across all protocols: %+v", deleter.calls)
	}
}

func TestPipelineNoRewriteNoDelete(t *testing.T) {
	deleter := &fakeDeleter{}
	pipeline := testPipeline(t, deleter)

	_, err := pipeline.Run(context.Background(), ledgerBatch(t), Options{ChainID: 600})
	if err != nil {
		t.Fatal(err)
	}
	if len(deleter.calls) != 0 {
		t.Fatalf("append-only run must not delete: %+v", deleter.calls)
	}
}

func TestPipelineRewriteRequiresStore(t *testing.T) {
	pipeline := testPipeline(t, nil)
	if _, err := pipeline.Run(context.Background(), ledgerBatch(t), Options{ChainID: 600, Rewrite: true}); err == nil {
		t.Fatal("rewrite without a store must fail")
	}
}

func TestPipelineRewriteDeleteFailure(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("connection reset")}
	pipeline := testPipeline(t, deleter)

	if _, err := pipeline.Run(context.Background(), ledgerBatch(t), Options{ChainID: 600, Rewrite: true}); err == nil {
		t.Fatal("failed delete must abort the run")
	}
}
