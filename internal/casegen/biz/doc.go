// Package biz 提供用例生成服务的业务逻辑层。
//
// 一次请求按固定顺序经过以下组件：
//   - Chunker: 按窗口切分文档并按内容摘要去重
//   - Retriever: 向量相似度与词项覆盖率的混合检索
//   - EvidenceGate: 依据检索得分均值决定是否允许生成
//   - Generator: 构造提示词、调用模型并执行结果校验与兜底
//   - Evaluator: 调试模式下的结构性检查（仅供参考）
//   - Service: 组合以上组件，提供 HandleQuery
package biz
