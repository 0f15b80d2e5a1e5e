// Package types 定义 go-rd 公共值类型
//
// 本文件定义 RdID：协议树内寻址实体的层级式确定性标识符。
package types

import (
	"strconv"

	"github.com/spaolacci/murmur3"

	"github.com/dep2p/go-rd/pkg/lib/buffer"
)

// ════════════════════════════════════════════════════════════════════════════
//                              RdID
// ════════════════════════════════════════════════════════════════════════════

// hashFactor 父子混合乘数
//
// 子 id 由父 id 与名字哈希确定性混合得到。两端各自独立计算，
// 同一 (父路径, 名字) 序列在任意进程中必须得到同一 id，
// 因此该常数是协议契约的一部分，不可更改。
const hashFactor = 31

// RdID 协议树内的实体标识符
//
// Nil 是根哨兵值。同一棵已绑定协议树内，任意两个存活实体
// 不得共享同一 id。
type RdID int64

// Nil 根哨兵 id
const Nil RdID = 0

// IsNil 判断是否为哨兵值
func (id RdID) IsNil() bool {
	return id == Nil
}

// Mix 以名字派生子 id
//
// 纯函数：依赖 (id, name)，跨进程确定。名字哈希采用
// murmur3 64 位变体，不依赖平台字节序。
func (id RdID) Mix(name string) RdID {
	h := murmur3.Sum64([]byte(name))
	return RdID(int64(uint64(id)*hashFactor + h))
}

// MixInt 以序号派生子 id
func (id RdID) MixInt(i int) RdID {
	return id.Mix(strconv.Itoa(i))
}

// String 返回十进制表示
func (id RdID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Write 将 id 写入缓冲区
func (id RdID) Write(b *buffer.Buffer) {
	b.WriteInt64(int64(id))
}

// ReadRdID 从缓冲区读取 id
func ReadRdID(b *buffer.Buffer) (RdID, error) {
	v, err := b.ReadInt64()
	if err != nil {
		return Nil, err
	}
	return RdID(v), nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              Unit
// ════════════════════════════════════════════════════════════════════════════

// ════════════════════════════════════════════════════════════════════════════
//                              OutOfSyncPolicy
// ════════════════════════════════════════════════════════════════════════════

// OutOfSyncPolicy 协议失同步（无人认领消息、重复绑定）的处理策略
type OutOfSyncPolicy int

const (
	// PolicyTolerate 记录并继续：消息积压等待实体绑定，重复绑定只拒绝后来者
	PolicyTolerate OutOfSyncPolicy = iota
	// PolicyFail 立即以 panic 暴露失同步
	PolicyFail
)

// Unit 规范零元值
//
// 无参调用的请求不会省略负载，而是携带 Unit，保证线格式
// 与参数个数无关地保持统一。
type Unit struct{}

// UnitValue 共享的 Unit 实例
var UnitValue = Unit{}
