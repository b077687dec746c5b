package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"idl-kit-sol/internal/consts"
	"idl-kit-sol/internal/logic/idl"
	"idl-kit-sol/internal/logic/resolver"
)

// Severity 结论级别：error 表示文档无效，warning 仅提醒。
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// 规则代码。校验结论按 (code, subject, path) 排序，与声明顺序无关。
const (
	CodeUnresolvedTypeReference    = "UnresolvedTypeReference"
	CodeCyclicTypeDefinition       = "CyclicTypeDefinition"
	CodeDuplicateDiscriminator     = "DuplicateDiscriminator"
	CodeDuplicateName              = "DuplicateName"
	CodeDuplicateErrorCode         = "DuplicateErrorCode"
	CodeUnsubstitutedGeneric       = "UnsubstitutedGeneric"
	CodeUnresolvedAccountReference = "UnresolvedAccountReference"
	CodeBadDiscriminatorLength     = "BadDiscriminatorLength"
	CodeMissingName                = "MissingName"
	CodeMissingVersion             = "MissingVersion"
	CodeMissingAddress             = "MissingAddress"
	CodeUnknownSpecVersion         = "UnknownSpecVersion"
	CodeAccountTypeMissing         = "AccountTypeMissing"
	CodeEventTypeMissing           = "EventTypeMissing"
)

// Finding 单条校验结论。
type Finding struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Subject  string   `json:"subject"`        // 结论主体（指令名、类型名等）
	Path     string   `json:"path,omitempty"` // 文档内定位
	Message  string   `json:"message"`
}

// Result 全量校验结论集。
type Result struct {
	Findings []Finding `json:"findings"`
}

// OK 无 error 级结论即文档有效。
func (r *Result) OK() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

func (r *Result) ErrorCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

func (r *Result) WarningCount() int {
	return len(r.Findings) - r.ErrorCount()
}

// Validate 对当前代文档执行全部规则。只读；规则彼此独立，
// 单条失败不阻断其余规则，所有结论一次性汇总返回。
func Validate(doc *idl.Idl) *Result {
	c := &checker{doc: doc}

	// 1. 元信息完整性
	c.checkMetadata()
	// 2. 判别码长度与(各命名空间内)唯一性
	c.checkDiscriminators()
	// 3. 命名空间内重名与错误码重复
	c.checkNames()
	c.checkErrorCodes()
	// 4. 类型引用可解析：未解析引用、定义环、未代入泛型
	c.checkTypeRefs()
	// 5. PDA 种子、program、relations 的账户引用
	c.checkAccountRefs()
	// 6. 账户与事件的同名布局存在性
	c.checkLayouts()

	sort.SliceStable(c.findings, func(i, j int) bool {
		a, b := c.findings[i], c.findings[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Path < b.Path
	})
	return &Result{Findings: c.findings}
}

type checker struct {
	doc      *idl.Idl
	findings []Finding
}

func (c *checker) add(code string, sev Severity, subject, path, msg string) {
	c.findings = append(c.findings, Finding{Code: code, Severity: sev, Subject: subject, Path: path, Message: msg})
}

func (c *checker) checkMetadata() {
	if c.doc.Metadata.Name == "" {
		c.add(CodeMissingName, SeverityError, "metadata.name", "metadata.name", "program name is empty")
	}
	if c.doc.Metadata.Version == "" {
		c.add(CodeMissingVersion, SeverityError, "metadata.version", "metadata.version", "program version is empty")
	}
	if c.doc.Address == "" {
		c.add(CodeMissingAddress, SeverityError, "address", "address", "program address is empty")
	}
	if c.doc.Metadata.Spec != consts.SpecV010 {
		c.add(CodeUnknownSpecVersion, SeverityError, "metadata.spec", "metadata.spec",
			fmt.Sprintf("spec version %q is not %q", c.doc.Metadata.Spec, consts.SpecV010))
	}
}

type discHolder struct {
	name string
	disc idl.Bytes
}

func (c *checker) checkDiscriminators() {
	ix := make([]discHolder, 0, len(c.doc.Instructions))
	for _, it := range c.doc.Instructions {
		ix = append(ix, discHolder{it.Name, it.Discriminator})
	}
	c.checkDiscSection("instructions", ix)

	accs := make([]discHolder, 0, len(c.doc.Accounts))
	for _, it := range c.doc.Accounts {
		accs = append(accs, discHolder{it.Name, it.Discriminator})
	}
	c.checkDiscSection("accounts", accs)

	evs := make([]discHolder, 0, len(c.doc.Events))
	for _, it := range c.doc.Events {
		evs = append(evs, discHolder{it.Name, it.Discriminator})
	}
	c.checkDiscSection("events", evs)
}

// checkDiscSection 长度逐条报告；重复值一个值一条结论，点名全部持有者。
func (c *checker) checkDiscSection(section string, items []discHolder) {
	holders := make(map[string][]string)
	order := make([]string, 0, len(items))
	for _, it := range items {
		if len(it.disc) != consts.DiscriminatorLen {
			c.add(CodeBadDiscriminatorLength, SeverityError, it.name,
				fmt.Sprintf("%s.%s", section, it.name),
				fmt.Sprintf("discriminator has %d bytes, want %d", len(it.disc), consts.DiscriminatorLen))
		}
		key := string(it.disc)
		if _, seen := holders[key]; !seen {
			order = append(order, key)
		}
		holders[key] = append(holders[key], it.name)
	}
	for _, key := range order {
		names := holders[key]
		if len(names) < 2 {
			continue
		}
		c.add(CodeDuplicateDiscriminator, SeverityError, strings.Join(names, ", "), section,
			fmt.Sprintf("discriminator %d shared by %s", idl.Bytes(key), strings.Join(names, ", ")))
	}
}

func (c *checker) checkNames() {
	c.checkNameSection("instructions", func() []string {
		out := make([]string, 0, len(c.doc.Instructions))
		for _, it := range c.doc.Instructions {
			out = append(out, it.Name)
		}
		return out
	}())
	c.checkNameSection("accounts", func() []string {
		out := make([]string, 0, len(c.doc.Accounts))
		for _, it := range c.doc.Accounts {
			out = append(out, it.Name)
		}
		return out
	}())
	c.checkNameSection("events", func() []string {
		out := make([]string, 0, len(c.doc.Events))
		for _, it := range c.doc.Events {
			out = append(out, it.Name)
		}
		return out
	}())
	c.checkNameSection("types", func() []string {
		out := make([]string, 0, len(c.doc.Types))
		for _, it := range c.doc.Types {
			out = append(out, it.Name)
		}
		return out
	}())
	c.checkNameSection("constants", func() []string {
		out := make([]string, 0, len(c.doc.Constants))
		for _, it := range c.doc.Constants {
			out = append(out, it.Name)
		}
		return out
	}())
}

func (c *checker) checkNameSection(section string, names []string) {
	count := make(map[string]int, len(names))
	order := make([]string, 0, len(names))
	for _, n := range names {
		if count[n] == 0 {
			order = append(order, n)
		}
		count[n]++
	}
	for _, n := range order {
		if count[n] > 1 {
			c.add(CodeDuplicateName, SeverityError, n, section,
				fmt.Sprintf("name %q appears %d times in %s", n, count[n], section))
		}
	}
}

func (c *checker) checkErrorCodes() {
	holders := make(map[uint32][]string)
	order := make([]uint32, 0, len(c.doc.Errors))
	for _, e := range c.doc.Errors {
		if _, seen := holders[e.Code]; !seen {
			order = append(order, e.Code)
		}
		holders[e.Code] = append(holders[e.Code], e.Name)
	}
	for _, code := range order {
		names := holders[code]
		if len(names) < 2 {
			continue
		}
		c.add(CodeDuplicateErrorCode, SeverityError, strings.Join(names, ", "), "errors",
			fmt.Sprintf("error code %d shared by %s", code, strings.Join(names, ", ")))
	}
}

// checkTypeRefs 解析失败映射到结论代码，定位沿用解析器给出的路径。
func (c *checker) checkTypeRefs() {
	refErrs := resolver.CheckDocument(&idl.Document{Generation: idl.GenerationCurrent, Current: c.doc})
	for _, re := range refErrs {
		var uerr *resolver.UnresolvedError
		if errors.As(re, &uerr) {
			c.add(CodeUnresolvedTypeReference, SeverityError, uerr.Name, re.Path, re.Err.Error())
			continue
		}
		var cerr *resolver.CycleError
		if errors.As(re, &cerr) {
			subject := ""
			if len(cerr.Chain) > 0 {
				subject = cerr.Chain[0]
			}
			c.add(CodeCyclicTypeDefinition, SeverityError, subject, re.Path, re.Err.Error())
			continue
		}
		var gerr *resolver.GenericError
		if errors.As(re, &gerr) {
			c.add(CodeUnsubstitutedGeneric, SeverityError, gerr.Name, re.Path, re.Err.Error())
			continue
		}
		c.add(CodeUnresolvedTypeReference, SeverityError, re.Path, re.Path, re.Err.Error())
	}
}

func (c *checker) checkAccountRefs() {
	docAccounts := make(map[string]struct{}, len(c.doc.Accounts))
	for _, a := range c.doc.Accounts {
		docAccounts[a.Name] = struct{}{}
	}

	for i := range c.doc.Instructions {
		ix := &c.doc.Instructions[i]
		local := make(map[string]struct{})
		collectAccountNames(ix.Accounts, local)

		resolve := func(name string) bool {
			if _, ok := local[name]; ok {
				return true
			}
			_, ok := docAccounts[name]
			return ok
		}

		var visit func(items []idl.InstructionAccount)
		visit = func(items []idl.InstructionAccount) {
			for j := range items {
				acc := &items[j]
				if len(acc.Accounts) > 0 {
					visit(acc.Accounts)
					continue
				}
				path := fmt.Sprintf("instructions.%s.accounts.%s", ix.Name, acc.Name)
				if acc.PDA != nil {
					for _, seed := range acc.PDA.Seeds {
						c.checkSeedRef(seed, path, resolve)
					}
					if acc.PDA.Program != nil {
						c.checkSeedRef(*acc.PDA.Program, path, resolve)
					}
				}
				for _, rel := range acc.Relations {
					if !resolve(pathHead(rel)) {
						c.add(CodeUnresolvedAccountReference, SeverityError, rel, path,
							fmt.Sprintf("relation %q does not name an account of this instruction or document", rel))
					}
				}
			}
		}
		visit(ix.Accounts)
	}
}

// checkSeedRef 仅 account 种子携带账户引用；const/arg 不参与。
func (c *checker) checkSeedRef(seed idl.Seed, path string, resolve func(string) bool) {
	if seed.Kind != "account" {
		return
	}
	head := pathHead(seed.Path)
	if head == "" || resolve(head) {
		return
	}
	c.add(CodeUnresolvedAccountReference, SeverityError, seed.Path, path,
		fmt.Sprintf("seed path %q does not name an account of this instruction or document", seed.Path))
}

func (c *checker) checkLayouts() {
	for _, a := range c.doc.Accounts {
		if c.doc.TypeByName(a.Name) == nil {
			c.add(CodeAccountTypeMissing, SeverityWarning, a.Name, fmt.Sprintf("accounts.%s", a.Name),
				fmt.Sprintf("account %q has no layout definition in types", a.Name))
		}
	}
	for _, e := range c.doc.Events {
		if c.doc.TypeByName(e.Name) == nil {
			c.add(CodeEventTypeMissing, SeverityWarning, e.Name, fmt.Sprintf("events.%s", e.Name),
				fmt.Sprintf("event %q has no layout definition in types", e.Name))
		}
	}
}

func collectAccountNames(items []idl.InstructionAccount, into map[string]struct{}) {
	for i := range items {
		into[items[i].Name] = struct{}{}
		if len(items[i].Accounts) > 0 {
			collectAccountNames(items[i].Accounts, into)
		}
	}
}

// pathHead 引用路径的首段即账户名，其余为字段访问。
func pathHead(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}
