package codegen

import (
	"bytes"
	"fmt"
	"strings"
)

// ============================================================================
// 代码生成
// ============================================================================

const generatedHeader = "// Code generated by rdgen. DO NOT EDIT.\n"

// Emit 生成模型对应的 Go 源码
//
// 输出确定性地由模型内容决定：服务与方法按声明顺序生成。
// 调用 Emit 前必须先通过 Validate。
func Emit(m *Model) ([]byte, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}

	var needsTypes, needsBuffer bool
	for _, svc := range m.Services {
		for _, mm := range svc.Methods {
			if len(mm.Params) == 0 || mm.Result == "" {
				needsTypes = true
			}
			if len(mm.Params) > 0 {
				needsBuffer = true
			}
		}
	}

	var b bytes.Buffer
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "\npackage %s\n\n", m.Package)

	b.WriteString("import (\n")
	b.WriteString("\t\"time\"\n\n")
	if needsBuffer {
		b.WriteString("\t\"github.com/dep2p/go-rd/pkg/lib/buffer\"\n")
	}
	b.WriteString("\t\"github.com/dep2p/go-rd/pkg/lifetime\"\n")
	b.WriteString("\t\"github.com/dep2p/go-rd/pkg/protocol\"\n")
	b.WriteString("\t\"github.com/dep2p/go-rd/pkg/protocol/task\"\n")
	if needsTypes {
		b.WriteString("\t\"github.com/dep2p/go-rd/pkg/types\"\n")
	}
	b.WriteString(")\n")

	for _, svc := range m.Services {
		emitService(&b, svc)
	}

	logger.Info("代码生成完成", "package", m.Package, "services", len(m.Services))
	return b.Bytes(), nil
}

func emitService(b *bytes.Buffer, svc Service) {
	svcName := exportName(svc.Name)

	// 服务接口
	fmt.Fprintf(b, "\n// %s 服务契约\ntype %s interface {\n", svcName, svcName)
	for _, m := range svc.Methods {
		fmt.Fprintf(b, "\t%s(lt *lifetime.Lifetime%s) (%s, error)\n",
			exportName(m.Name), paramList(m), resultType(m))
	}
	b.WriteString("}\n")

	// 请求结构体与编解码器
	for _, m := range svc.Methods {
		emitRequest(b, svc, m)
	}

	emitClient(b, svc)
	emitServer(b, svc)
}

// emitRequest 生成位置化请求结构体及其编解码器
//
// 零参方法直接复用 types.Unit，不生成结构体。
func emitRequest(b *bytes.Buffer, svc Service, m Method) {
	if len(m.Params) == 0 {
		return
	}
	reqName := requestType(svc, m)

	fmt.Fprintf(b, "\n// %s %s.%s 的位置化请求\ntype %s struct {\n",
		reqName, exportName(svc.Name), exportName(m.Name), reqName)
	for _, p := range m.Params {
		fmt.Fprintf(b, "\t%s %s\n", exportName(p.Name), wireTypes[p.Type].goType)
	}
	b.WriteString("}\n")

	fmt.Fprintf(b, "\nfunc %sCodec() protocol.Codec[%s] {\n", lowerFirst(reqName), reqName)
	fmt.Fprintf(b, "\treturn protocol.Codec[%s]{\n", reqName)

	fmt.Fprintf(b, "\t\tWrite: func(ctx protocol.SerializationCtx, buf *buffer.Buffer, v %s) error {\n", reqName)
	for _, p := range m.Params {
		fmt.Fprintf(b, "\t\t\tif err := %s.Write(ctx, buf, v.%s); err != nil {\n\t\t\t\treturn err\n\t\t\t}\n",
			wireTypes[p.Type].codec, exportName(p.Name))
	}
	b.WriteString("\t\t\treturn nil\n\t\t},\n")

	fmt.Fprintf(b, "\t\tRead: func(ctx protocol.SerializationCtx, buf *buffer.Buffer) (%s, error) {\n", reqName)
	fmt.Fprintf(b, "\t\t\tvar v %s\n\t\t\tvar err error\n", reqName)
	for _, p := range m.Params {
		fmt.Fprintf(b, "\t\t\tif v.%s, err = %s.Read(ctx, buf); err != nil {\n\t\t\t\treturn v, err\n\t\t\t}\n",
			exportName(p.Name), wireTypes[p.Type].codec)
	}
	b.WriteString("\t\t\treturn v, nil\n\t\t},\n\t}\n}\n")
}

// emitClient 生成客户端代理
func emitClient(b *bytes.Buffer, svc Service) {
	svcName := exportName(svc.Name)

	fmt.Fprintf(b, "\n// %sClient 客户端代理，实现 %s\ntype %sClient struct {\n", svcName, svcName, svcName)
	b.WriteString("\ttimeout time.Duration\n")
	for _, m := range svc.Methods {
		fmt.Fprintf(b, "\t%sCall *task.RdCall[%s, %s]\n", exportName(m.Name), requestType(svc, m), resultType(m))
	}
	b.WriteString("}\n")

	fmt.Fprintf(b, "\n// New%sClient 创建未绑定代理\nfunc New%sClient(timeout time.Duration) *%sClient {\n", svcName, svcName, svcName)
	fmt.Fprintf(b, "\treturn &%sClient{\n\t\ttimeout: timeout,\n", svcName)
	for _, m := range svc.Methods {
		fmt.Fprintf(b, "\t\t%sCall: task.NewRdCall[%s, %s](%s, %s),\n",
			exportName(m.Name), requestType(svc, m), resultType(m), requestCodec(svc, m), resultCodec(m))
	}
	b.WriteString("\t}\n}\n")

	fmt.Fprintf(b, "\n// Bind 把全部调用句柄挂入协议树\nfunc (c *%sClient) Bind(lt *lifetime.Lifetime, p *protocol.Protocol) error {\n", svcName)
	fmt.Fprintf(b, "\tparent := p.RootID().Mix(%q)\n", svc.Name)
	for _, m := range svc.Methods {
		fmt.Fprintf(b, "\tif err := c.%sCall.BindUnder(lt, p, parent, %q); err != nil {\n\t\treturn err\n\t}\n",
			exportName(m.Name), m.Name)
	}
	b.WriteString("\treturn nil\n}\n")

	for _, m := range svc.Methods {
		fmt.Fprintf(b, "\nfunc (c *%sClient) %s(lt *lifetime.Lifetime%s) (%s, error) {\n",
			svcName, exportName(m.Name), paramList(m), resultType(m))
		fmt.Fprintf(b, "\tt, err := c.%sCall.Start(lt, %s)\n", exportName(m.Name), requestLiteral(svc, m))
		fmt.Fprintf(b, "\tif err != nil {\n\t\tvar zero %s\n\t\treturn zero, err\n\t}\n", resultType(m))
		fmt.Fprintf(b, "\tr, err := t.Wait(c.%sCall.Proto().Clock(), c.timeout)\n", exportName(m.Name))
		fmt.Fprintf(b, "\tif err != nil {\n\t\tvar zero %s\n\t\treturn zero, err\n\t}\n", resultType(m))
		b.WriteString("\treturn r.Unwrap()\n}\n")
	}
}

// emitServer 生成服务端绑定器
func emitServer(b *bytes.Buffer, svc Service) {
	svcName := exportName(svc.Name)

	fmt.Fprintf(b, "\n// Bind%sServer 把实现挂到协议树的端点上\nfunc Bind%sServer(lt *lifetime.Lifetime, p *protocol.Protocol, impl %s) error {\n",
		svcName, svcName, svcName)
	fmt.Fprintf(b, "\tparent := p.RootID().Mix(%q)\n", svc.Name)
	for _, m := range svc.Methods {
		fmt.Fprintf(b, "\t%s := task.NewRdEndpoint[%s, %s](%s, %s,\n",
			lowerFirst(exportName(m.Name)), requestType(svc, m), resultType(m), requestCodec(svc, m), resultCodec(m))
		fmt.Fprintf(b, "\t\tfunc(reqLt *lifetime.Lifetime, req %s) (%s, error) {\n", requestType(svc, m), resultType(m))
		if m.Result == "" {
			fmt.Fprintf(b, "\t\t\treturn types.UnitValue, impl.%s(reqLt%s)\n", exportName(m.Name), argList(m))
		} else {
			fmt.Fprintf(b, "\t\t\treturn impl.%s(reqLt%s)\n", exportName(m.Name), argList(m))
		}
		b.WriteString("\t\t})\n")
		fmt.Fprintf(b, "\tif err := %s.BindUnder(lt, p, parent, %q); err != nil {\n\t\treturn err\n\t}\n",
			lowerFirst(exportName(m.Name)), m.Name)
	}
	b.WriteString("\treturn nil\n}\n")
}

// ════════════════════════════════════════════════════════════════════════════
//                              命名与类型工具
// ════════════════════════════════════════════════════════════════════════════

func requestType(svc Service, m Method) string {
	if len(m.Params) == 0 {
		return "types.Unit"
	}
	return exportName(svc.Name) + exportName(m.Name) + "Request"
}

func requestCodec(svc Service, m Method) string {
	if len(m.Params) == 0 {
		return "protocol.CodecUnit()"
	}
	return lowerFirst(requestType(svc, m)) + "Codec()"
}

func requestLiteral(svc Service, m Method) string {
	if len(m.Params) == 0 {
		return "types.UnitValue"
	}
	var fields []string
	for _, p := range m.Params {
		fields = append(fields, fmt.Sprintf("%s: %s", exportName(p.Name), p.Name))
	}
	return requestType(svc, m) + "{" + strings.Join(fields, ", ") + "}"
}

func resultType(m Method) string {
	if m.Result == "" {
		return "types.Unit"
	}
	return wireTypes[m.Result].goType
}

func resultCodec(m Method) string {
	if m.Result == "" {
		return "protocol.CodecUnit()"
	}
	return wireTypes[m.Result].codec
}

func paramList(m Method) string {
	var b strings.Builder
	for _, p := range m.Params {
		fmt.Fprintf(&b, ", %s %s", p.Name, wireTypes[p.Type].goType)
	}
	return b.String()
}

func argList(m Method) string {
	var b strings.Builder
	for _, p := range m.Params {
		fmt.Fprintf(&b, ", req.%s", exportName(p.Name))
	}
	return b.String()
}

func exportName(name string) string {
	return strings.ToUpper(name[:1]) + name[1:]
}

func lowerFirst(name string) string {
	return strings.ToLower(name[:1]) + name[1:]
}
