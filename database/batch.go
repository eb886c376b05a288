package database

import (
	"fmt"
	"log"
)

// MaxBatchOps предел операций в одном атомарном пакете записи.
// Ограничение хранилища, не настраивается.
const MaxBatchOps = 500

// BatchOp одна операция записи в составе пакета
type BatchOp struct {
	Query string
	Args  []interface{}
}

// WriteBatch набор операций записи, применяемых атомарными пакетами
type WriteBatch struct {
	ops []BatchOp
}

// NewWriteBatch создает пустой пакет записи
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{ops: make([]BatchOp, 0)}
}

// Add добавляет операцию в пакет
func (b *WriteBatch) Add(op BatchOp) {
	b.ops = append(b.ops, op)
}

// Len возвращает количество операций в пакете
func (b *WriteBatch) Len() int {
	return len(b.ops)
}

// Chunks разбивает операции на пакеты не больше MaxBatchOps
func (b *WriteBatch) Chunks() [][]BatchOp {
	var chunks [][]BatchOp
	for start := 0; start < len(b.ops); start += MaxBatchOps {
		end := start + MaxBatchOps
		if end > len(b.ops) {
			end = len(b.ops)
		}
		chunks = append(chunks, b.ops[start:end])
	}
	return chunks
}

// BatchError ошибка применения пакетов записи. Уже закоммиченные пакеты
// не откатываются — это известное ограничение, о котором сообщается оператору.
type BatchError struct {
	FailedChunk     int
	CommittedChunks int
	Err             error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d failed after %d committed batches: %v",
		e.FailedChunk+1, e.CommittedChunks, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// SubmitBatches применяет операции последовательными атомарными пакетами
// не больше MaxBatchOps каждый. Ошибка любого пакета прерывает оставшиеся;
// уже закоммиченные пакеты остаются закоммиченными.
func (db *PlantDB) SubmitBatches(batch *WriteBatch) error {
	chunks := batch.Chunks()
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if err := db.submitChunk(chunk); err != nil {
			return &BatchError{FailedChunk: i, CommittedChunks: i, Err: err}
		}
		if len(chunks) > 1 {
			log.Printf("[PlantDB] Batch %d/%d committed (%d ops)", i+1, len(chunks), len(chunk))
		}
	}

	return nil
}

// submitChunk выполняет один пакет в рамках одной транзакции
func (db *PlantDB) submitChunk(ops []BatchOp) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, op := range ops {
		if _, err := tx.Exec(op.Query, op.Args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute batch op: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}
