// Package task 实现协议树上的请求/响应调用
//
// RdCall 是客户端句柄：每次调用分配一个动态 taskID，请求发往
// 调用实体的 id，响应在 taskID 上返回。RdEndpoint 是服务端句柄，
// 为每个入站请求派生请求生存期并调用处理函数。
//
// 任务结果是终态三选一：成功、出错、取消。终态一经写入不可变，
// 竞态下先到者胜。客户端生存期终止或同步等待超时都会向服务端
// 发送取消请求，服务端以终止请求生存期的方式传达给处理函数。
package task
