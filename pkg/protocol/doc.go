// Package protocol 实现协议树的组合根与可绑定实体
//
// Protocol 把 Wire、Serializers、Identities、Scheduler、驻留根与
// 上下文处理器组合为一棵协议树。反应式实体先以未绑定状态本地使用，
// Bind 之后获得确定性 RdID 并开始线上同步：本地变更序列化为差量
// 经 Wire 发出，入站差量在协议调度器上应用并触发本地事件，处理
// 函数执行期间恢复发送方的环境值。
//
// 实体绑定随 Lifetime 终止自动解除，此后退化为纯本地原语。
package protocol
