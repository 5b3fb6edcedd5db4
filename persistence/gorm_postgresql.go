// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/fruitbox/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Warn,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormRoom{},
		&models.GormPlayer{},
		&models.GormBoard{},
		&models.GormPlayerState{},
		&models.GormMove{},
	)
}

// SaveRoom 插入或更新房间状态
func (p *GormPostgreSQL) SaveRoom(room *models.GormRoom) error {
	return p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(room).Error
}

// DeleteRoom 级联删除房间及其所有记录
func (p *GormPostgreSQL) DeleteRoom(roomCode string) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.GormMove{},
			&models.GormPlayerState{},
			&models.GormBoard{},
			&models.GormPlayer{},
			&models.GormRoom{},
		} {
			if err := tx.Where("room_code = ?", roomCode).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SavePlayer 插入或更新玩家分数
func (p *GormPostgreSQL) SavePlayer(player *models.GormPlayer) error {
	return p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(player).Error
}

// SaveBoard 同一代棋盘只写一次
func (p *GormPostgreSQL) SaveBoard(board *models.GormBoard) error {
	return p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(board).Error
}

func (p *GormPostgreSQL) SavePlayerState(state *models.GormPlayerState) error {
	return p.db.Create(state).Error
}

func (p *GormPostgreSQL) AppendMove(move *models.GormMove) error {
	return p.db.Create(move).Error
}

func (p *GormPostgreSQL) LoadRoom(roomCode string) (*models.GormRoom, error) {
	var room models.GormRoom
	if err := p.db.Where("room_code = ?", roomCode).First(&room).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (p *GormPostgreSQL) LoadBoard(roomCode string, generation int) (*models.GormBoard, error) {
	var board models.GormBoard
	err := p.db.Where("room_code = ? AND generation = ?", roomCode, generation).First(&board).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &board, nil
}

// LatestPlayerState 返回玩家在房间内最新的快照
func (p *GormPostgreSQL) LatestPlayerState(roomCode string, playerID int64) (*models.GormPlayerState, error) {
	var state models.GormPlayerState
	err := p.db.Where("room_code = ? AND player_id = ?", roomCode, playerID).
		Order("sequence DESC, id DESC").
		First(&state).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &state, nil
}

func (p *GormPostgreSQL) Moves(roomCode string) ([]models.GormMove, error) {
	var moves []models.GormMove
	err := p.db.Where("room_code = ?", roomCode).Order("id ASC").Find(&moves).Error
	return moves, err
}

func (p *GormPostgreSQL) MaxIDs() (roomID, playerID int64, err error) {
	if err = p.db.Model(&models.GormRoom{}).Select("COALESCE(MAX(id), 0)").Scan(&roomID).Error; err != nil {
		return 0, 0, err
	}
	if err = p.db.Model(&models.GormPlayer{}).Select("COALESCE(MAX(id), 0)").Scan(&playerID).Error; err != nil {
		return 0, 0, err
	}
	return roomID, playerID, nil
}

func (p *GormPostgreSQL) RoomCodes() ([]string, error) {
	var codes []string
	err := p.db.Model(&models.GormRoom{}).Order("id ASC").Pluck("room_code", &codes).Error
	return codes, err
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}
