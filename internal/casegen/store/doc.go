// Package store 提供每个请求独立的向量索引。
//
// VectorIndex 在一次请求的文档块上构建 IndexHandle，请求结束时通过 Close 释放。
// 内存实现在请求堆上保存向量；Milvus 实现为每个请求创建独立集合并在 Close 时删除。
package store
