// persistence/sql_store.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL 驱动
	_ "github.com/mattn/go-sqlite3" // SQLite 驱动

	"github.com/wfunc/fruitbox/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	queryTimeout = 5 * time.Second
)

// SQLStore 基于 database/sql 的实现，支持 PostgreSQL 和 SQLite。
// 查询统一使用 ? 占位符，PostgreSQL 下改写为 $n。
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*SQLStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
	return openSQL(DriverPostgres, connStr)
}

// NewSQLite 打开（必要时创建）SQLite 数据库文件
func NewSQLite(path string) (*SQLStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return openSQL(DriverSQLite, path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
}

func openSQL(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数，SQLite 只允许单写
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initTables 初始化数据库表结构
func (s *SQLStore) initTables() error {
	serial := "BIGSERIAL PRIMARY KEY"
	if s.driver == DriverSQLite {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS game_rooms (
            id BIGINT PRIMARY KEY,
            room_code VARCHAR(6) UNIQUE NOT NULL,
            name VARCHAR(255) UNIQUE NOT NULL,
            max_players INTEGER NOT NULL,
            status VARCHAR(20) NOT NULL DEFAULT 'waiting',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS players (
            id BIGINT PRIMARY KEY,
            room_id BIGINT NOT NULL,
            room_code VARCHAR(6) NOT NULL,
            name VARCHAR(255) NOT NULL,
            score INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS game_boards (
            id %s,
            room_code VARCHAR(6) NOT NULL,
            generation INTEGER NOT NULL,
            cells TEXT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (room_code, generation)
        )`, serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS player_game_states (
            id %s,
            player_id BIGINT NOT NULL,
            room_code VARCHAR(6) NOT NULL,
            generation INTEGER NOT NULL,
            sequence BIGINT NOT NULL,
            collected TEXT NOT NULL,
            score INTEGER NOT NULL DEFAULT 0,
            time_remaining INTEGER NOT NULL,
            finished BOOLEAN DEFAULT FALSE,
            final_score INTEGER DEFAULT 0,
            needs_new_board BOOLEAN DEFAULT FALSE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`, serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS game_moves (
            id %s,
            room_id BIGINT NOT NULL,
            room_code VARCHAR(6) NOT NULL,
            player_id BIGINT NOT NULL,
            start_row INTEGER NOT NULL,
            start_col INTEGER NOT NULL,
            end_row INTEGER NOT NULL,
            end_col INTEGER NOT NULL,
            points_earned INTEGER NOT NULL DEFAULT 0,
            board_state TEXT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`, serial),
		// 创建索引以提高查询性能
		`CREATE INDEX IF NOT EXISTS idx_players_room_code ON players(room_code)`,
		`CREATE INDEX IF NOT EXISTS idx_player_state ON player_game_states(player_id, room_code, generation)`,
		`CREATE INDEX IF NOT EXISTS idx_game_moves_room_code ON game_moves(room_code)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind 将 ? 占位符改写为驱动需要的形式
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(query string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	return err
}

// SaveRoom 使用 UPSERT 保存房间状态
func (s *SQLStore) SaveRoom(room *models.GormRoom) error {
	return s.exec(`
        INSERT INTO game_rooms (id, room_code, name, max_players, status)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id)
        DO UPDATE SET status = excluded.status, updated_at = CURRENT_TIMESTAMP
    `, room.ID, room.RoomCode, room.Name, room.MaxPlayers, room.Status)
}

// DeleteRoom 在一个事务里级联删除
func (s *SQLStore) DeleteRoom(roomCode string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"game_moves", "player_game_states", "game_boards", "players", "game_rooms"} {
		query := s.rebind("DELETE FROM " + table + " WHERE room_code = ?")
		if _, err := tx.ExecContext(ctx, query, roomCode); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) SavePlayer(player *models.GormPlayer) error {
	return s.exec(`
        INSERT INTO players (id, room_id, room_code, name, score)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id)
        DO UPDATE SET score = excluded.score, updated_at = CURRENT_TIMESTAMP
    `, player.ID, player.RoomID, player.RoomCode, player.Name, player.Score)
}

func (s *SQLStore) SaveBoard(board *models.GormBoard) error {
	return s.exec(`
        INSERT INTO game_boards (room_code, generation, cells)
        VALUES (?, ?, ?)
        ON CONFLICT (room_code, generation) DO NOTHING
    `, board.RoomCode, board.Generation, board.Cells)
}

func (s *SQLStore) SavePlayerState(state *models.GormPlayerState) error {
	return s.exec(`
        INSERT INTO player_game_states
            (player_id, room_code, generation, sequence, collected, score,
             time_remaining, finished, final_score, needs_new_board)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, state.PlayerID, state.RoomCode, state.Generation, state.Sequence, state.Collected,
		state.Score, state.TimeRemaining, state.Finished, state.FinalScore, state.NeedsNewBoard)
}

func (s *SQLStore) AppendMove(move *models.GormMove) error {
	return s.exec(`
        INSERT INTO game_moves
            (room_id, room_code, player_id, start_row, start_col, end_row, end_col,
             points_earned, board_state)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, move.RoomID, move.RoomCode, move.PlayerID, move.StartRow, move.StartCol,
		move.EndRow, move.EndCol, move.PointsEarned, move.BoardState)
}

func (s *SQLStore) LoadRoom(roomCode string) (*models.GormRoom, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var room models.GormRoom
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, room_code, name, max_players, status FROM game_rooms WHERE room_code = ?`),
		roomCode,
	).Scan(&room.ID, &room.RoomCode, &room.Name, &room.MaxPlayers, &room.Status)
	if err != nil {
		return nil, noRows(err)
	}
	return &room, nil
}

func (s *SQLStore) LoadBoard(roomCode string, generation int) (*models.GormBoard, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var board models.GormBoard
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, room_code, generation, cells FROM game_boards WHERE room_code = ? AND generation = ?`),
		roomCode, generation,
	).Scan(&board.ID, &board.RoomCode, &board.Generation, &board.Cells)
	if err != nil {
		return nil, noRows(err)
	}
	return &board, nil
}

func (s *SQLStore) LatestPlayerState(roomCode string, playerID int64) (*models.GormPlayerState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var st models.GormPlayerState
	err := s.db.QueryRowContext(ctx, s.rebind(`
        SELECT id, player_id, room_code, generation, sequence, collected, score,
               time_remaining, finished, final_score, needs_new_board
        FROM player_game_states
        WHERE room_code = ? AND player_id = ?
        ORDER BY sequence DESC, id DESC
        LIMIT 1`), roomCode, playerID,
	).Scan(&st.ID, &st.PlayerID, &st.RoomCode, &st.Generation, &st.Sequence, &st.Collected,
		&st.Score, &st.TimeRemaining, &st.Finished, &st.FinalScore, &st.NeedsNewBoard)
	if err != nil {
		return nil, noRows(err)
	}
	return &st, nil
}

func (s *SQLStore) Moves(roomCode string) ([]models.GormMove, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
        SELECT id, room_id, room_code, player_id, start_row, start_col, end_row, end_col,
               points_earned, board_state
        FROM game_moves
        WHERE room_code = ?
        ORDER BY id ASC`), roomCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GormMove
	for rows.Next() {
		var m models.GormMove
		var boardState sql.NullString
		if err := rows.Scan(&m.ID, &m.RoomID, &m.RoomCode, &m.PlayerID, &m.StartRow, &m.StartCol,
			&m.EndRow, &m.EndCol, &m.PointsEarned, &boardState); err != nil {
			return nil, err
		}
		m.BoardState = boardState.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) MaxIDs() (roomID, playerID int64, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err = s.db.QueryRowContext(ctx, `
        SELECT (SELECT COALESCE(MAX(id), 0) FROM game_rooms),
               (SELECT COALESCE(MAX(id), 0) FROM players)`,
	).Scan(&roomID, &playerID)
	return roomID, playerID, err
}

func (s *SQLStore) RoomCodes() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT room_code FROM game_rooms ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Close 关闭数据库连接
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func noRows(err error) error {
	if err == sql.ErrNoRows {
		return ErrRecordNotFound
	}
	return err
}
