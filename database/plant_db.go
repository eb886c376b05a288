package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBConfig конфигурация подключения к БД
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PlantDB обертка для работы с базой данных производства
type PlantDB struct {
	conn             *sql.DB
	tableCreateMutex sync.Mutex // Мьютекс для создания таблиц (защита от race condition)
}

// NewPlantDB создает новое подключение к базе данных производства
func NewPlantDB(dbPath string) (*PlantDB, error) {
	config := DBConfig{}

	// Для in-memory SQLite требуется использовать ровно одно соединение,
	// иначе каждое новое соединение будет получать пустую БД без таблиц.
	if isInMemoryDB(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	return NewPlantDBWithConfig(dbPath, config)
}

// isInMemoryDB определяет, что путь относится к in-memory SQLite
func isInMemoryDB(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}

	// Формат file:memdb?mode=memory&cache=shared также хранит БД в памяти
	if strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory") {
		return true
	}

	return false
}

// NewPlantDBWithConfig создает новое подключение к базе данных производства с конфигурацией
func NewPlantDBWithConfig(dbPath string, config DBConfig) (*PlantDB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open plant database: %w", err)
	}

	// Настройка connection pooling
	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		// SQLite плохо справляется с большим количеством одновременных соединений
		conn.SetMaxOpenConns(10)
	}

	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(3)
	}

	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping plant database: %w", err)
	}

	// Включаем поддержку FOREIGN KEY constraints в SQLite
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL позволяет множественным читателям работать одновременно без блокировок
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Printf("[PlantDB] Warning: Failed to enable WAL mode: %v", err)
	}

	plantDB := &PlantDB{conn: conn}

	if err := plantDB.InitTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize plant schema: %w", err)
	}

	return plantDB, nil
}

// InitTables инициализирует схему базы данных производства
func (db *PlantDB) InitTables() error {
	db.tableCreateMutex.Lock()
	defer db.tableCreateMutex.Unlock()

	queries := []string{
		// Станки: документ с денормализованным массивом суточных журналов (logs)
		// и текущим состоянием для быстрых выборок на дашборде
		`CREATE TABLE IF NOT EXISTS machines (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			aliases TEXT NOT NULL DEFAULT '[]',
			logs TEXT NOT NULL DEFAULT '[]',
			current_status TEXT NOT NULL DEFAULT 'stopped',
			current_client TEXT NOT NULL DEFAULT '',
			current_fabric TEXT NOT NULL DEFAULT '',
			current_remaining REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Нормализованные суточные записи: источник истины для поиска
		// "предыдущего журнала" при следующей сверке
		`CREATE TABLE IF NOT EXISTS production_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			machine_id TEXT NOT NULL,
			date TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'stopped',
			fabric TEXT NOT NULL DEFAULT '',
			client TEXT NOT NULL DEFAULT '',
			production REAL NOT NULL DEFAULT 0,
			scrap REAL NOT NULL DEFAULT 0,
			remaining REAL NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(machine_id, date)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_production_logs_machine_date
			ON production_logs(machine_id, date)`,

		// Таблица соответствий рабочий центр -> станок, редактируется оператором
		`CREATE TABLE IF NOT EXISTS workcenter_mappings (
			label TEXT PRIMARY KEY,
			machine_id TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Справочник тканей
		`CREATE TABLE IF NOT EXISTS fabrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			short_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return runPlantMigrations(db.conn)
}

// Close закрывает подключение к базе данных
func (db *PlantDB) Close() error {
	return db.conn.Close()
}

// Ping проверяет подключение к базе данных
func (db *PlantDB) Ping() error {
	return db.conn.Ping()
}

// GetConnection возвращает низкоуровневое подключение (для миграций и тестов)
func (db *PlantDB) GetConnection() *sql.DB {
	return db.conn
}
