package main

import (
	"fmt"
	"math"
)

// cursor.go - 绝对偏移光标、网格几何与 Vim 风格计数动作

const (
	// maxCount 计数前缀上限，防止 count*10 溢出
	maxCount int64 = 1 << 40

	maxColumns  int64 = 512
	maxWordSize int64 = 128
)

// Geometry 把扁平字节流解释为二维网格
type Geometry struct {
	Columns  int64 // 每行的字组数
	WordSize int64 // 每组字节数
}

// RowWidth 每个逻辑行的字节数
func (g Geometry) RowWidth() int64 { return satMul(g.Columns, g.WordSize) }

// CursorModel 拥有光标和几何；所有动作都是饱和的，不会越出 [0, size-1]
type CursorModel struct {
	pos  int64
	geom Geometry

	count    int64
	hasCount bool

	last string // 最近一次动作的标签 (状态栏显示)
}

// NewCursorModel 创建位于偏移 0 的光标
func NewCursorModel(columns, wordSize int64) CursorModel {
	c := CursorModel{}
	c.SetGeometry(Geometry{Columns: columns, WordSize: wordSize})
	return c
}

// Position 返回光标；空文件没有有效位置
func (c *CursorModel) Position(size int64) (int64, bool) {
	if size <= 0 {
		return 0, false
	}
	return c.pos, true
}

// Pos 原始光标值（可能在文件缩小后暂时越界，直到下一次动作重新钳制）
func (c *CursorModel) Pos() int64 { return c.pos }

func (c *CursorModel) Geometry() Geometry { return c.geom }

func (c *CursorModel) LastCommand() string { return c.last }

// PendingCount 当前累积的计数，0 表示没有
func (c *CursorModel) PendingCount() (int64, bool) { return c.count, c.hasCount }

// PushDigit 累积计数前缀。0 只有在计数已开始后才被接受。
func (c *CursorModel) PushDigit(d int) bool {
	if d < 0 || d > 9 {
		return false
	}
	if d == 0 && !c.hasCount {
		return false
	}
	if c.count < maxCount {
		c.count = c.count*10 + int64(d)
	}
	c.hasCount = true
	return true
}

// ClearCount 丢弃计数（下一个输入不是动作时调用）
func (c *CursorModel) ClearCount() {
	c.count = 0
	c.hasCount = false
}

// takeCount 消费计数，没有时视为 1
func (c *CursorModel) takeCount() int64 {
	n := int64(1)
	if c.hasCount && c.count > 0 {
		n = c.count
	}
	c.ClearCount()
	return n
}

// isMotion 报告 cmd 是否由 CursorModel 处理
func isMotion(cmd command) bool {
	switch cmd {
	case cmdLeft, cmdRight, cmdUp, cmdDown,
		cmdWordNext, cmdWordPrev, cmdWordEnd,
		cmdHome, cmdEnd, cmdRowStart, cmdRowEnd, cmdLast,
		cmdColumnsDec, cmdColumnsInc, cmdWordDec, cmdWordInc:
		return true
	}
	return false
}

// Apply 执行一个复合动作，返回状态栏标签和几何是否改变
func (c *CursorModel) Apply(cmd command, size int64) (string, bool) {
	hadCount := c.hasCount
	n := c.takeCount()
	geometryChanged := false

	switch cmd {
	case cmdLeft:
		c.moveLeft(n, size)
	case cmdRight:
		c.moveRight(n, size)
	case cmdUp:
		c.moveLeft(satMul(n, c.geom.RowWidth()), size)
	case cmdDown:
		c.moveRight(satMul(n, c.geom.RowWidth()), size)

	case cmdWordNext:
		ws := c.geom.WordSize
		for i := int64(0); i < n; i++ {
			before := c.clamp(c.pos, size)
			c.pos = c.clamp(satAdd(before-before%ws, ws), size)
			if c.pos == before {
				break
			}
		}
	case cmdWordPrev:
		ws := c.geom.WordSize
		for i := int64(0); i < n; i++ {
			before := c.clamp(c.pos, size)
			if r := before % ws; r != 0 {
				c.pos = before - r
			} else if before >= ws {
				c.pos = before - ws
			} else {
				c.pos = 0
			}
			if c.pos == before {
				break
			}
		}
	case cmdWordEnd:
		ws := c.geom.WordSize
		for i := int64(0); i < n; i++ {
			before := c.clamp(c.pos, size)
			end := satAdd(before-before%ws, ws-1)
			if before%ws == ws-1 {
				end = satAdd(end, ws)
			}
			c.pos = c.clamp(end, size)
			if c.pos == before {
				break
			}
		}

	case cmdHome:
		c.pos = 0
	case cmdEnd:
		c.pos = c.clamp(math.MaxInt64, size)
	case cmdRowStart:
		rw := c.geom.RowWidth()
		p := c.clamp(c.pos, size)
		c.pos = p - p%rw
	case cmdRowEnd:
		rw := c.geom.RowWidth()
		p := c.clamp(c.pos, size)
		c.pos = c.clamp(satAdd(p-p%rw, rw-1), size)
	case cmdLast:
		// G 跳到末尾；带计数时跳到绝对偏移 count
		if hadCount {
			c.pos = c.clamp(n, size)
		} else {
			c.pos = c.clamp(math.MaxInt64, size)
		}

	case cmdColumnsDec:
		c.geom.Columns = decFloor(c.geom.Columns, n)
		geometryChanged = true
	case cmdColumnsInc:
		c.geom.Columns = min(satAdd(c.geom.Columns, n), maxColumns)
		geometryChanged = true
	case cmdWordDec:
		c.geom.WordSize = decFloor(c.geom.WordSize, n)
		geometryChanged = true
	case cmdWordInc:
		c.geom.WordSize = min(satAdd(c.geom.WordSize, n), maxWordSize)
		geometryChanged = true

	default:
		return c.last, false
	}

	c.last = motionLabel(cmd, n, hadCount)
	return c.last, geometryChanged
}

// Goto 跳到绝对偏移（饱和）
func (c *CursorModel) Goto(off, size int64) string {
	c.ClearCount()
	if off < 0 {
		off = 0
	}
	c.pos = c.clamp(off, size)
	c.last = fmt.Sprintf(":goto %d", off)
	return c.last
}

// SetGeometry 由命令行直接设置列数/字长
func (c *CursorModel) SetGeometry(g Geometry) {
	g.Columns = max(1, min(g.Columns, maxColumns))
	g.WordSize = max(1, min(g.WordSize, maxWordSize))
	c.geom = g
}

func (c *CursorModel) moveLeft(n, size int64) {
	p := c.clamp(c.pos, size)
	if p >= n {
		p -= n
	} else {
		p = 0
	}
	c.pos = p
}

func (c *CursorModel) moveRight(n, size int64) {
	c.pos = c.clamp(satAdd(c.clamp(c.pos, size), n), size)
}

// clamp 把 p 限制在 [0, size-1]；空文件时为 0
func (c *CursorModel) clamp(p, size int64) int64 {
	if size <= 0 || p < 0 {
		return 0
	}
	if p > size-1 {
		return size - 1
	}
	return p
}

var motionNames = map[command]string{
	cmdLeft:       "h",
	cmdRight:      "l",
	cmdUp:         "k",
	cmdDown:       "j",
	cmdWordNext:   "w",
	cmdWordPrev:   "b",
	cmdWordEnd:    "e",
	cmdHome:       "Home",
	cmdEnd:        "End",
	cmdRowStart:   "0",
	cmdRowEnd:     "$",
	cmdLast:       "G",
	cmdColumnsDec: "-",
	cmdColumnsInc: "+",
	cmdWordDec:    "Alt -",
	cmdWordInc:    "Alt +",
}

func motionLabel(cmd command, n int64, hadCount bool) string {
	name := motionNames[cmd]
	switch {
	case cmd == cmdHome || cmd == cmdEnd:
		return name
	case cmd == cmdLast && hadCount:
		return fmt.Sprintf("%dG", n)
	case n > 1:
		return fmt.Sprintf("%d%s", n, name)
	}
	return name
}

func decFloor(v, n int64) int64 {
	if v > n {
		return v - n
	}
	return 1
}

// satAdd 饱和加法（只用于非负值）
func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// satMul 饱和乘法（只用于非负值）
func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}
