package realtime

// Variable 一个有序的键值对，名字允许重复
type Variable struct {
	Name  string
	Value string
}

// Variables 单条记录解码后的有序键值列表
type Variables []Variable

// Category 配置分组，变量保持追加顺序
type Category struct {
	Name      string
	Variables Variables
}

func NewCategory(name string) *Category {
	return &Category{Name: name}
}

func (c *Category) Append(name, value string) {
	c.Variables = append(c.Variables, Variable{Name: name, Value: value})
}

// Config 有序的分组序列，多记录查询和文件加载的结果形态
type Config struct {
	Categories []*Category
}

func NewConfig() *Config {
	return &Config{}
}

// AppendCategory 追加一个分组并把它设为当前分组
func (c *Config) AppendCategory(cat *Category) {
	c.Categories = append(c.Categories, cat)
}

// CurrentCategory 最后追加的分组，没有时返回 nil
func (c *Config) CurrentCategory() *Category {
	if len(c.Categories) == 0 {
		return nil
	}
	return c.Categories[len(c.Categories)-1]
}
