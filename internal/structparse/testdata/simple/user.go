package simple

import (
	"time"

	sq "database/sql"
)

// User 用户
// @omit(NewUser, ID, derive(Debug, Clone))
// @pick(UserName, Name)
type User struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"` // 用户名

	// 创建时间
	CreatedAt  time.Time
	Email, Tel string
	Deleted    sq.NullTime
}

// Plain 没有注解，不会被收集
type Plain struct {
	A int
}
