// Package clock 抽象当前时间，便于测试中固定"今天"。
package clock

import "time"

// Clock 提供当前时间。生产代码注入 Real()，测试注入 Fixed()。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real 返回系统时钟
func Real() Clock { return realClock{} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// Fixed 返回永远停在 t 的时钟
func Fixed(t time.Time) Clock { return fixedClock{t: t} }
