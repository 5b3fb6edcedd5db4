package network

// 客户端 -> 服务器
const (
	MsgTypeHeartbeat    = 1
	MsgTypeJoinRoom     = 101
	MsgTypeSubscribe    = 102
	MsgTypeCreateRoom   = 103
	MsgTypeStartGame    = 104
	MsgTypeSelection    = 201
	MsgTypeRequestBoard = 202
	MsgTypeFinish       = 203
	MsgTypeSyncTime     = 204
)

// 服务器 -> 客户端：请求的应答
const (
	MsgTypeRoomState       = 301
	MsgTypePlayerState     = 302
	MsgTypeSelectionResult = 310
	MsgTypeNewBoardResult  = 311
	MsgTypeFinishResult    = 312
	MsgTypeError           = 400
)

// 服务器 -> 客户端：房间事件广播
const (
	MsgTypeGameStart    = 303
	MsgTypeGameEnd      = 305
	MsgTypePlayerJoined = 306
	MsgTypeMoveMade     = 307
	MsgTypeInvalidMove  = 308
	MsgTypeBoardRenewed = 309
)
