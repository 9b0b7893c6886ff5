package shop

import (
	"strconv"
	"strings"

	"petshop/cmd/petshop/ui"
	"petshop/internal/admin"
	"petshop/internal/types"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

// formKind identifies what submitting a form does.
type formKind int

const (
	formLogin formKind = iota
	formRegister
	formCheckout
	formProfile
	formProduct
	formCategory
)

type fieldSpec struct {
	key    string
	label  string
	secret bool
	limit  int
}

type formField struct {
	key   string
	label string
	input textinput.Model
}

// form is a vertical list of text inputs with one focused at a time.
type form struct {
	kind   formKind
	title  string
	fields []formField
	focus  int
	errors map[string]string
}

func newForm(kind formKind, title string, specs ...fieldSpec) *form {
	f := &form{kind: kind, title: title}
	for _, s := range specs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = s.label
		ti.CharLimit = 200
		if s.limit > 0 {
			ti.CharLimit = s.limit
		}
		if s.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.fields = append(f.fields, formField{key: s.key, label: s.label, input: ti})
	}
	if len(f.fields) > 0 {
		f.fields[0].input.Focus()
	}
	return f
}

// Value returns the trimmed value of key.
func (f *form) Value(key string) string {
	for _, fl := range f.fields {
		if fl.key == key {
			return strings.TrimSpace(fl.input.Value())
		}
	}
	return ""
}

// SetValue fills key.
func (f *form) SetValue(key, v string) {
	for i := range f.fields {
		if f.fields[i].key == key {
			f.fields[i].input.SetValue(v)
		}
	}
}

func (f *form) setFocus(i int) {
	n := len(f.fields)
	if n == 0 {
		return
	}
	f.fields[f.focus].input.Blur()
	f.focus = (i%n + n) % n
	f.fields[f.focus].input.Focus()
}

// Update moves focus on tab/up/down and forwards everything else to the
// focused input.
func (f *form) Update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return nil
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return nil
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f *form) View(s ui.Styles) string {
	var sb strings.Builder
	sb.WriteString(s.Title.Render(f.title))
	sb.WriteString("\n")
	for i, fl := range f.fields {
		label := s.Muted.Render(fl.label)
		if i == f.focus {
			label = s.Selected.Render("› " + fl.label)
		}
		sb.WriteString(label + "\n")
		sb.WriteString("  " + fl.input.View() + "\n")
		if msg, ok := f.errors[fl.key]; ok {
			sb.WriteString("  " + s.Error.Render(msg) + "\n")
		}
	}
	sb.WriteString("\n" + s.Muted.Render("tab next field · enter submit · esc back"))
	return sb.String()
}

func loginForm() *form {
	return newForm(formLogin, "Log in",
		fieldSpec{key: "email", label: "Email"},
		fieldSpec{key: "password", label: "Password", secret: true},
	)
}

func registerForm() *form {
	return newForm(formRegister, "Create an account",
		fieldSpec{key: "name", label: "Full name"},
		fieldSpec{key: "email", label: "Email"},
		fieldSpec{key: "password", label: "Password", secret: true},
	)
}

func checkoutForm() *form {
	return newForm(formCheckout, "Checkout",
		fieldSpec{key: "phone", label: "Phone"},
		fieldSpec{key: "address", label: "Delivery address"},
		fieldSpec{key: "comment", label: "Comment (optional)"},
	)
}

func profileForm(u types.User) *form {
	f := newForm(formProfile, "Profile",
		fieldSpec{key: "fullName", label: "Full name"},
		fieldSpec{key: "email", label: "Email"},
		fieldSpec{key: "address", label: "Address"},
		fieldSpec{key: "phone", label: "Phone"},
	)
	f.SetValue("fullName", u.FullName)
	f.SetValue("email", u.Email)
	f.SetValue("address", u.Address)
	f.SetValue("phone", u.Phone)
	return f
}

func productForm(p types.Product) *form {
	title := "New product"
	if p.ID != 0 {
		title = "Edit product #" + types.FormatID(p.ID)
	}
	f := newForm(formProduct, title,
		fieldSpec{key: "name", label: "Name"},
		fieldSpec{key: "description", label: "Description", limit: admin.MaxDescriptionLength},
		fieldSpec{key: "price", label: "Price"},
		fieldSpec{key: "imageUrl", label: "Image URL"},
		fieldSpec{key: "categoryId", label: "Category id"},
		fieldSpec{key: "stock", label: "Stock"},
	)
	if p.ID != 0 {
		f.SetValue("name", p.Name)
		f.SetValue("description", p.Description)
		f.SetValue("price", p.Price.String())
		f.SetValue("imageUrl", p.ImageURL)
		f.SetValue("categoryId", types.FormatID(p.CategoryRef()))
		f.SetValue("stock", strconv.Itoa(p.Stock))
	}
	return f
}

func categoryForm() *form {
	return newForm(formCategory, "New category", fieldSpec{key: "name", label: "Name"})
}

// productInput parses the product form. Unparseable numbers become zero and
// are then rejected by admin.ValidateProduct.
func (f *form) productInput() types.ProductInput {
	price, err := decimal.NewFromString(f.Value("price"))
	if err != nil {
		price = decimal.Zero
	}
	cat, _ := strconv.ParseInt(f.Value("categoryId"), 10, 64)
	stock, err := strconv.Atoi(f.Value("stock"))
	if err != nil && f.Value("stock") != "" {
		stock = -1
	}
	return types.ProductInput{
		Name:        f.Value("name"),
		Description: f.Value("description"),
		Price:       price,
		ImageURL:    f.Value("imageUrl"),
		CategoryID:  cat,
		Stock:       stock,
	}
}
