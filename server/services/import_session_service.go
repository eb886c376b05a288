package services

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"prodboard/database"
	"prodboard/importer"
	apperrors "prodboard/server/errors"
)

// ImportSession состояние одной сессии импорта. Весь справочный контекст
// (станки, соответствия, ткани) читается один раз при открытии и не
// перечитывается до конца сессии: правки других операторов видны только
// следующей сессии.
type ImportSession struct {
	ID         string
	TargetDate string
	Rows       []importer.ImportRow
	Machines   []*database.Machine
	Mappings   map[string]string
	Fabrics    []*database.Fabric
	Staged     []*StagedRow
	CreatedAt  time.Time
}

// SessionView ответ на открытие сессии: материал для шага проверки
// соответствий и шлюза тканей
type SessionView struct {
	SessionID      string          `json:"session_id"`
	TargetDate     string          `json:"target_date"`
	RowCount       int             `json:"row_count"`
	Mappings       []MappingReview `json:"mappings"`
	MissingFabrics []string        `json:"missing_fabrics"`
}

// ImportSessionService ведет единственную активную сессию импорта.
// Одновременно открыто не больше одной сессии; открытие новой заменяет
// предыдущую (устаревший модальный диалог).
type ImportSessionService struct {
	db         *database.PlantDB
	resolver   *ResolverService
	fabrics    *FabricService
	reconciler *ReconciliationService
	commit     *CommitService

	mu      sync.Mutex
	session *ImportSession
}

// NewImportSessionService создает сервис сессий импорта
func NewImportSessionService(
	db *database.PlantDB,
	resolver *ResolverService,
	fabrics *FabricService,
	reconciler *ReconciliationService,
	commit *CommitService,
) *ImportSessionService {
	return &ImportSessionService{
		db:         db,
		resolver:   resolver,
		fabrics:    fabrics,
		reconciler: reconciler,
		commit:     commit,
	}
}

// Open разбирает книгу выгрузки и открывает сессию: загружает станки,
// соответствия и ткани, разрешает рабочие центры и возвращает материал
// для проверки оператором. Ошибка разбора не оставляет никакого состояния.
func (s *ImportSessionService) Open(workbook io.Reader, targetDate string) (*SessionView, error) {
	if _, err := time.Parse(database.DateLayout, targetDate); err != nil {
		return nil, apperrors.NewValidationError("неверный формат целевой даты, ожидается YYYY-MM-DD", err)
	}

	rows, err := importer.ParseProductionWorkbook(workbook)
	if err != nil {
		return nil, apperrors.NewValidationError("не удалось разобрать книгу выгрузки", err)
	}

	machines, err := s.db.GetAllMachines()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить станки", err)
	}

	mappings, err := s.db.GetWorkCenterMappings()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить соответствия рабочих центров", err)
	}

	fabrics, err := s.db.GetFabrics()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось загрузить справочник тканей", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		log.Printf("[Import] Replacing stale session %s", s.session.ID)
	}

	s.session = &ImportSession{
		ID:         uuid.New().String(),
		TargetDate: targetDate,
		Rows:       rows,
		Machines:   machines,
		Mappings:   mappings,
		Fabrics:    fabrics,
		CreatedAt:  time.Now(),
	}

	return s.viewLocked(), nil
}

// viewLocked строит SessionView; вызывается под мьютексом
func (s *ImportSessionService) viewLocked() *SessionView {
	sess := s.session
	return &SessionView{
		SessionID:      sess.ID,
		TargetDate:     sess.TargetDate,
		RowCount:       len(sess.Rows),
		Mappings:       s.resolver.ReviewMappings(sess.Rows, sess.Machines, sess.Mappings),
		MissingFabrics: s.fabrics.MissingFabrics(sess.Rows, sess.Fabrics),
	}
}

// SaveMapping сохраняет правку соответствия. Правка персистится немедленно
// и независимо от транзакционного применения сверки, и сразу действует
// в текущей сессии.
func (s *ImportSessionService) SaveMapping(label, machineID string) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, apperrors.NewConflictError("нет активной сессии импорта", nil)
	}

	if err := s.resolver.SaveMapping(label, machineID); err != nil {
		return nil, apperrors.NewInternalError("не удалось сохранить соответствие", err)
	}

	s.session.Mappings[label] = machineID
	// Ранее подготовленные строки устарели после правки
	s.session.Staged = nil

	return s.viewLocked(), nil
}

// CreateFabrics создает одобренные оператором ткани и обновляет справочник
// сессии, чтобы сверка видела новые короткие имена
func (s *ImportSessionService) CreateFabrics(names []string) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, apperrors.NewConflictError("нет активной сессии импорта", nil)
	}

	if err := s.fabrics.CreateFabrics(names); err != nil {
		return nil, apperrors.NewInternalError("не удалось создать ткани", err)
	}

	fabrics, err := s.db.GetFabrics()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось перечитать справочник тканей", err)
	}
	s.session.Fabrics = fabrics
	s.session.Staged = nil

	return s.viewLocked(), nil
}

// Reconcile строит строки сверки по текущему состоянию сессии.
// Повторный вызов на неизменной сессии дает идентичный результат.
func (s *ImportSessionService) Reconcile() ([]*StagedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, apperrors.NewConflictError("нет активной сессии импорта", nil)
	}

	sess := s.session
	resolved := s.resolver.ResolveAll(sess.Rows, sess.Machines, sess.Mappings)
	fabricShort := s.fabrics.ShortNameLookup(sess.Fabrics)

	staged, err := s.reconciler.Reconcile(sess.Machines, sess.Rows, resolved, fabricShort, sess.TargetDate)
	if err != nil {
		return nil, apperrors.NewValidationError("сверка не выполнена", err)
	}

	sess.Staged = staged
	return staged, nil
}

// Apply применяет выбранные строки и закрывает сессию. selected — множество
// идентификаторов станков, отмеченных оператором; строки ERROR остаются
// применимыми — система информирует, но не запрещает.
func (s *ImportSessionService) Apply(selected map[string]bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return 0, apperrors.NewConflictError("нет активной сессии импорта", nil)
	}
	if s.session.Staged == nil {
		return 0, apperrors.NewConflictError("сверка еще не выполнена", nil)
	}

	for _, row := range s.session.Staged {
		row.Selected = selected[row.MachineID]
	}

	updated, err := s.commit.Apply(s.session.Machines, s.session.Staged, s.session.TargetDate)
	if err != nil {
		// Сессия сохраняется, чтобы оператор видел контекст ошибки;
		// перед повтором он обязан заново выполнить сверку
		return 0, apperrors.NewInternalError("применение сверки не удалось, перезапустите сверку перед повтором", err)
	}

	s.session = nil
	return updated, nil
}

// Close отбрасывает сессию без каких-либо записей в хранилище.
// Уже сохраненные правки соответствий остаются — это справочные данные.
func (s *ImportSessionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		log.Printf("[Import] Session %s closed without apply", s.session.ID)
	}
	s.session = nil
}
