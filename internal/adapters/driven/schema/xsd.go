// Package schema validates iDEAL documents against an XML Schema.
//
// Only the subset of XSD used by the iDEAL message schemas is interpreted:
// global and local element declarations, named and anonymous complex types
// built from a single sequence, attributes with use="required" and fixed
// values, and simple type restrictions over the common built-in types.
// References to elements from another namespace (ds:Signature) are matched
// by name only.
package schema

import (
	_ "embed"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
	"github.com/juriansluiman/slm-ideal-payment/internal/core/ports"
)

const xsdNamespace = "http://www.w3.org/2001/XMLSchema"

//go:embed ideal-3.3.1.xsd
var ideal331 []byte

// unbounded is the maxOccurs value for maxOccurs="unbounded".
const unbounded = -1

type particle struct {
	name      string
	foreign   bool
	typeRef   typeRef
	complex   *complexType
	simple    *simpleType
	minOccurs int
	maxOccurs int
}

type typeRef struct {
	name    string
	builtin bool
}

type attribute struct {
	name     string
	required bool
	fixed    string
	hasFixed bool
	typeRef  typeRef
	simple   *simpleType
}

type complexType struct {
	sequence   []*particle
	attributes []*attribute
}

type simpleType struct {
	base         typeRef
	baseSimple   *simpleType
	patterns     []*regexp.Regexp
	enumerations []string
	length       int
	minLength    int
	maxLength    int
	minInclusive string
	maxInclusive string
	totalDigits  int
	fracDigits   int
}

// XSDValidator checks documents against a parsed schema. It is immutable
// after construction and safe for concurrent use.
type XSDValidator struct {
	targetNamespace string
	elements        map[string]*particle
	complexTypes    map[string]*complexType
	simpleTypes     map[string]*simpleType
	logger          *zap.Logger
}

// Option configures an XSDValidator.
type Option func(*XSDValidator)

// WithLogger sets the logger used to report validation failures.
func WithLogger(logger *zap.Logger) Option {
	return func(v *XSDValidator) {
		v.logger = logger
	}
}

// Default returns a validator for the embedded iDEAL 3.3.1 schema.
func Default(opts ...Option) (*XSDValidator, error) {
	return New(ideal331, opts...)
}

// Load reads and parses the schema at path.
func Load(path string, opts ...Option) (*XSDValidator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.AppError{
			Code:    domain.ErrCodeConfigInvalid,
			Message: fmt.Sprintf("cannot open schema file %s", path),
			Cause:   err,
		}
	}
	return New(data, opts...)
}

// New parses an XML Schema document.
func New(data []byte, opts ...Option) (*XSDValidator, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, schemaError("parse schema", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "schema" {
		return nil, schemaError("document is not an XML Schema", nil)
	}

	v := &XSDValidator{
		targetNamespace: root.SelectAttrValue("targetNamespace", ""),
		elements:        make(map[string]*particle),
		complexTypes:    make(map[string]*complexType),
		simpleTypes:     make(map[string]*simpleType),
	}
	for _, opt := range opts {
		opt(v)
	}

	p := &schemaParser{root: root}
	// Named types first so element declarations can be resolved lazily.
	for _, child := range root.ChildElements() {
		name := child.SelectAttrValue("name", "")
		var err error
		switch child.Tag {
		case "complexType":
			v.complexTypes[name], err = p.complexType(child)
		case "simpleType":
			v.simpleTypes[name], err = p.simpleType(child)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, child := range root.ChildElements() {
		if child.Tag != "element" {
			continue
		}
		decl, err := p.element(child)
		if err != nil {
			return nil, err
		}
		v.elements[decl.name] = decl
	}
	if len(v.elements) == 0 {
		return nil, schemaError("schema declares no global elements", nil)
	}

	if err := v.resolve(); err != nil {
		return nil, err
	}
	return v, nil
}

// TargetNamespace returns the namespace the schema describes.
func (v *XSDValidator) TargetNamespace() string {
	return v.targetNamespace
}

// Validate checks doc against the schema. The first violation is returned
// as an ErrSchemaValidationFailed error naming the offending path.
func (v *XSDValidator) Validate(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return validationError("", "document has no root element")
	}
	root := doc.Root()

	decl, ok := v.elements[root.Tag]
	if !ok {
		return v.fail(validationError(root.Tag, "no declaration for root element"))
	}
	if v.targetNamespace != "" {
		if ns := root.NamespaceURI(); ns != v.targetNamespace {
			return v.fail(validationError(root.Tag,
				fmt.Sprintf("namespace %q, expected %q", ns, v.targetNamespace)))
		}
	}
	return v.fail(v.validateElement(root, decl, "/"+root.Tag))
}

func (v *XSDValidator) fail(err error) error {
	if err != nil && v.logger != nil {
		v.logger.Debug("schema validation failed", zap.Error(err))
	}
	return err
}

func (v *XSDValidator) validateElement(el *etree.Element, decl *particle, path string) error {
	if decl.foreign {
		return nil
	}
	if ct := v.complexFor(decl); ct != nil {
		return v.validateComplex(el, ct, path)
	}
	if len(el.ChildElements()) > 0 {
		return validationError(path, "simple content expected, found child elements")
	}
	if err := v.checkAttributes(el, nil, path); err != nil {
		return err
	}
	return v.validateSimple(el.Text(), decl.typeRef, decl.simple, path)
}

func (v *XSDValidator) complexFor(decl *particle) *complexType {
	if decl.complex != nil {
		return decl.complex
	}
	if !decl.typeRef.builtin && decl.typeRef.name != "" {
		return v.complexTypes[decl.typeRef.name]
	}
	return nil
}

func (v *XSDValidator) validateComplex(el *etree.Element, ct *complexType, path string) error {
	if err := v.checkAttributes(el, ct.attributes, path); err != nil {
		return err
	}
	if txt := strings.TrimSpace(el.Text()); txt != "" {
		return validationError(path, fmt.Sprintf("unexpected text %q in element-only content", txt))
	}

	children := el.ChildElements()
	i := 0
	for _, p := range ct.sequence {
		count := 0
		for i < len(children) && children[i].Tag == p.name && (p.maxOccurs == unbounded || count < p.maxOccurs) {
			childPath := path + "/" + children[i].Tag
			if err := v.validateElement(children[i], p, childPath); err != nil {
				return err
			}
			count++
			i++
		}
		if count < p.minOccurs {
			return validationError(path, fmt.Sprintf("missing element %s", p.name))
		}
	}
	if i < len(children) {
		return validationError(path, fmt.Sprintf("unexpected element %s", children[i].Tag))
	}
	return nil
}

func (v *XSDValidator) checkAttributes(el *etree.Element, declared []*attribute, path string) error {
	seen := make(map[string]bool, len(el.Attr))
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") || a.Space == "xsi" {
			continue
		}
		var decl *attribute
		for _, d := range declared {
			if d.name == a.Key {
				decl = d
				break
			}
		}
		if decl == nil {
			return validationError(path, fmt.Sprintf("attribute %s is not allowed", a.Key))
		}
		seen[a.Key] = true
		if decl.hasFixed && a.Value != decl.fixed {
			return validationError(path, fmt.Sprintf("attribute %s must be %q", a.Key, decl.fixed))
		}
		if err := v.validateSimple(a.Value, decl.typeRef, decl.simple, path+"/@"+a.Key); err != nil {
			return err
		}
	}
	for _, d := range declared {
		if d.required && !seen[d.name] {
			return validationError(path, fmt.Sprintf("missing required attribute %s", d.name))
		}
	}
	return nil
}

func (v *XSDValidator) validateSimple(value string, ref typeRef, anon *simpleType, path string) error {
	if anon != nil {
		return v.checkRestriction(value, anon, path)
	}
	if ref.name == "" {
		return nil
	}
	if ref.builtin {
		return checkBuiltin(value, ref.name, path)
	}
	st, ok := v.simpleTypes[ref.name]
	if !ok {
		return validationError(path, fmt.Sprintf("unknown type %s", ref.name))
	}
	return v.checkRestriction(value, st, path)
}

func (v *XSDValidator) checkRestriction(value string, st *simpleType, path string) error {
	if err := v.validateSimple(value, st.base, st.baseSimple, path); err != nil {
		return err
	}
	if v.baseIsCollapsed(st) {
		value = collapse(value)
	}

	n := len([]rune(value))
	switch {
	case st.length >= 0 && n != st.length:
		return validationError(path, fmt.Sprintf("length %d, expected %d", n, st.length))
	case st.minLength >= 0 && n < st.minLength:
		return validationError(path, fmt.Sprintf("length %d below minimum %d", n, st.minLength))
	case st.maxLength >= 0 && n > st.maxLength:
		return validationError(path, fmt.Sprintf("length %d above maximum %d", n, st.maxLength))
	}

	if len(st.enumerations) > 0 && !contains(st.enumerations, value) {
		return validationError(path, fmt.Sprintf("value %q not in enumeration", value))
	}
	for _, re := range st.patterns {
		if !re.MatchString(value) {
			return validationError(path, fmt.Sprintf("value %q does not match pattern %s", value, re))
		}
	}

	if st.totalDigits > 0 || st.fracDigits >= 0 {
		total, frac := digits(value)
		if st.totalDigits > 0 && total > st.totalDigits {
			return validationError(path, fmt.Sprintf("value %q has more than %d digits", value, st.totalDigits))
		}
		if st.fracDigits >= 0 && frac > st.fracDigits {
			return validationError(path, fmt.Sprintf("value %q has more than %d fraction digits", value, st.fracDigits))
		}
	}

	if st.minInclusive != "" || st.maxInclusive != "" {
		if err := checkBounds(value, st.minInclusive, st.maxInclusive); err != nil {
			return validationError(path, err.Error())
		}
	}
	return nil
}

// baseIsCollapsed reports whether the built-in type at the bottom of the
// restriction chain uses whiteSpace="collapse".
func (v *XSDValidator) baseIsCollapsed(st *simpleType) bool {
	for st != nil {
		if st.baseSimple != nil {
			st = st.baseSimple
			continue
		}
		if st.base.builtin {
			return st.base.name != "string" && st.base.name != "normalizedString"
		}
		st = v.simpleTypes[st.base.name]
	}
	return false
}

// resolve checks that every referenced named type exists.
func (v *XSDValidator) resolve() error {
	checkRef := func(ref typeRef, where string) error {
		if ref.builtin || ref.name == "" {
			return nil
		}
		if _, ok := v.complexTypes[ref.name]; ok {
			return nil
		}
		if _, ok := v.simpleTypes[ref.name]; ok {
			return nil
		}
		return schemaError(fmt.Sprintf("%s references undefined type %s", where, ref.name), nil)
	}

	var walkSimple func(st *simpleType, where string) error
	walkSimple = func(st *simpleType, where string) error {
		if st == nil {
			return nil
		}
		if err := checkRef(st.base, where); err != nil {
			return err
		}
		return walkSimple(st.baseSimple, where)
	}

	var walkComplex func(ct *complexType, where string) error
	walkComplex = func(ct *complexType, where string) error {
		for _, a := range ct.attributes {
			if err := checkRef(a.typeRef, where+"/@"+a.name); err != nil {
				return err
			}
			if err := walkSimple(a.simple, where+"/@"+a.name); err != nil {
				return err
			}
		}
		for _, p := range ct.sequence {
			if p.foreign {
				continue
			}
			if err := checkRef(p.typeRef, where+"/"+p.name); err != nil {
				return err
			}
			if err := walkSimple(p.simple, where+"/"+p.name); err != nil {
				return err
			}
			if p.complex != nil {
				if err := walkComplex(p.complex, where+"/"+p.name); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for name, st := range v.simpleTypes {
		if err := walkSimple(st, name); err != nil {
			return err
		}
	}
	for name, ct := range v.complexTypes {
		if err := walkComplex(ct, name); err != nil {
			return err
		}
	}
	for name, decl := range v.elements {
		if err := checkRef(decl.typeRef, name); err != nil {
			return err
		}
		if decl.complex != nil {
			if err := walkComplex(decl.complex, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// schemaParser turns XSD elements into the validator model.
type schemaParser struct {
	root *etree.Element
}

// typeRef resolves a QName attribute value against the schema's namespace
// declarations.
func (p *schemaParser) typeRef(qname string) typeRef {
	prefix, local := "", qname
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		prefix, local = qname[:i], qname[i+1:]
	}
	return typeRef{name: local, builtin: p.namespace(prefix) == xsdNamespace}
}

func (p *schemaParser) namespace(prefix string) string {
	for _, a := range p.root.Attr {
		if prefix == "" && a.Space == "" && a.Key == "xmlns" {
			return a.Value
		}
		if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
			return a.Value
		}
	}
	return ""
}

func (p *schemaParser) element(el *etree.Element) (*particle, error) {
	decl := &particle{minOccurs: 1, maxOccurs: 1}

	if ref := el.SelectAttrValue("ref", ""); ref != "" {
		prefix := ""
		if i := strings.IndexByte(ref, ':'); i >= 0 {
			prefix = ref[:i]
		}
		decl.name = p.typeRef(ref).name
		decl.foreign = p.namespace(prefix) != p.root.SelectAttrValue("targetNamespace", "")
	} else {
		decl.name = el.SelectAttrValue("name", "")
		if decl.name == "" {
			return nil, schemaError("element declaration without name or ref", nil)
		}
	}

	var err error
	if decl.minOccurs, err = occurs(el, "minOccurs"); err != nil {
		return nil, err
	}
	if decl.maxOccurs, err = occurs(el, "maxOccurs"); err != nil {
		return nil, err
	}

	if t := el.SelectAttrValue("type", ""); t != "" {
		decl.typeRef = p.typeRef(t)
	}
	if ct := el.SelectElement("complexType"); ct != nil {
		if decl.complex, err = p.complexType(ct); err != nil {
			return nil, err
		}
	}
	if st := el.SelectElement("simpleType"); st != nil {
		if decl.simple, err = p.simpleType(st); err != nil {
			return nil, err
		}
	}
	return decl, nil
}

func (p *schemaParser) complexType(el *etree.Element) (*complexType, error) {
	ct := &complexType{}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "sequence":
			for _, item := range child.ChildElements() {
				if item.Tag != "element" {
					return nil, schemaError(fmt.Sprintf("unsupported sequence particle %s", item.Tag), nil)
				}
				decl, err := p.element(item)
				if err != nil {
					return nil, err
				}
				ct.sequence = append(ct.sequence, decl)
			}
		case "attribute":
			a := &attribute{
				name:     child.SelectAttrValue("name", ""),
				required: child.SelectAttrValue("use", "") == "required",
			}
			if t := child.SelectAttrValue("type", ""); t != "" {
				a.typeRef = p.typeRef(t)
			}
			if fixed := child.SelectAttr("fixed"); fixed != nil {
				a.fixed, a.hasFixed = fixed.Value, true
			}
			if st := child.SelectElement("simpleType"); st != nil {
				var err error
				if a.simple, err = p.simpleType(st); err != nil {
					return nil, err
				}
			}
			ct.attributes = append(ct.attributes, a)
		case "annotation":
		default:
			return nil, schemaError(fmt.Sprintf("unsupported complexType content %s", child.Tag), nil)
		}
	}
	return ct, nil
}

func (p *schemaParser) simpleType(el *etree.Element) (*simpleType, error) {
	r := el.SelectElement("restriction")
	if r == nil {
		return nil, schemaError("simpleType without restriction", nil)
	}
	st := &simpleType{length: -1, minLength: -1, maxLength: -1, fracDigits: -1}
	if base := r.SelectAttrValue("base", ""); base != "" {
		st.base = p.typeRef(base)
	} else if inner := r.SelectElement("simpleType"); inner != nil {
		var err error
		if st.baseSimple, err = p.simpleType(inner); err != nil {
			return nil, err
		}
	}

	for _, facet := range r.ChildElements() {
		value := facet.SelectAttrValue("value", "")
		var err error
		switch facet.Tag {
		case "pattern":
			var re *regexp.Regexp
			re, err = regexp.Compile("^(?:" + value + ")$")
			if err == nil {
				st.patterns = append(st.patterns, re)
			}
		case "enumeration":
			st.enumerations = append(st.enumerations, value)
		case "length":
			st.length, err = strconv.Atoi(value)
		case "minLength":
			st.minLength, err = strconv.Atoi(value)
		case "maxLength":
			st.maxLength, err = strconv.Atoi(value)
		case "totalDigits":
			st.totalDigits, err = strconv.Atoi(value)
		case "fractionDigits":
			st.fracDigits, err = strconv.Atoi(value)
		case "minInclusive":
			st.minInclusive = value
		case "maxInclusive":
			st.maxInclusive = value
		case "simpleType", "annotation", "whiteSpace":
		default:
			return nil, schemaError(fmt.Sprintf("unsupported facet %s", facet.Tag), nil)
		}
		if err != nil {
			return nil, schemaError(fmt.Sprintf("invalid %s facet %q", facet.Tag, value), err)
		}
	}
	return st, nil
}

func occurs(el *etree.Element, attr string) (int, error) {
	v := el.SelectAttrValue(attr, "1")
	if v == "unbounded" {
		return unbounded, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, schemaError(fmt.Sprintf("invalid %s %q", attr, v), err)
	}
	return n, nil
}

func schemaError(message string, cause error) *domain.AppError {
	return &domain.AppError{
		Code:    domain.ErrCodeConfigInvalid,
		Message: "invalid schema: " + message,
		Cause:   cause,
	}
}

func validationError(path, message string) *domain.AppError {
	if path != "" {
		message = path + ": " + message
	}
	return &domain.AppError{
		Code:    domain.ErrCodeSchemaValidationFailed,
		Message: "schema validation failed: " + message,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// digits counts the significant total and fraction digits of a decimal.
func digits(value string) (total, frac int) {
	value = strings.TrimLeft(value, "+-")
	whole, fraction, _ := strings.Cut(value, ".")
	whole = strings.TrimLeft(whole, "0")
	fraction = strings.TrimRight(fraction, "0")
	return len(whole) + len(fraction), len(fraction)
}

// checkBounds compares value with inclusive bounds, numerically for decimals
// and by length of time for durations.
func checkBounds(value, min, max string) error {
	cmp := compareDecimal
	if strings.Contains(value, "P") {
		cmp = compareDuration
	}
	if min != "" {
		c, err := cmp(value, min)
		if err != nil {
			return err
		}
		if c < 0 {
			return fmt.Errorf("value %q below minimum %s", value, min)
		}
	}
	if max != "" {
		c, err := cmp(value, max)
		if err != nil {
			return err
		}
		if c > 0 {
			return fmt.Errorf("value %q above maximum %s", value, max)
		}
	}
	return nil
}

func compareDecimal(a, b string) (int, error) {
	x, ok := new(big.Rat).SetString(a)
	if !ok {
		return 0, fmt.Errorf("invalid decimal %q", a)
	}
	y, ok := new(big.Rat).SetString(b)
	if !ok {
		return 0, fmt.Errorf("invalid decimal bound %q", b)
	}
	return x.Cmp(y), nil
}

func compareDuration(a, b string) (int, error) {
	x, err := durationSeconds(a)
	if err != nil {
		return 0, err
	}
	y, err := durationSeconds(b)
	if err != nil {
		return 0, err
	}
	return x.Cmp(y), nil
}

var _ ports.SchemaValidator = (*XSDValidator)(nil)
