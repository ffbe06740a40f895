package pageinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>fallback title</title>
  <meta property="og:title" content="og title">
  <meta property="og:image" content="https://mmbiz.qpic.cn/cover.jpg">
  <meta name="description" content="一篇关于春天的文章">
  <script>var ignored = "不计入字数";</script>
</head>
<body>
  <h1 id="activity-name">
    春天的故事
  </h1>
  <a id="js_name">城市笔记</a>
  <span id="js_author_name">小王</span>
  <div id="js_content">
    <p>春天来了。</p>
    <p>Hello world 2024</p>
    <img src="a.png"><img src="b.png">
  </div>
</body>
</html>`

func TestExtract_ArticlePage(t *testing.T) {
	info, err := Extract(articleHTML, "https://mp.weixin.qq.com/s/abc")
	require.NoError(t, err)
	require.Equal(t, Info{
		URL:         "https://mp.weixin.qq.com/s/abc",
		Title:       "春天的故事",
		Author:      "小王",
		AccountName: "城市笔记",
		Digest:      "一篇关于春天的文章",
		CoverURL:    "https://mmbiz.qpic.cn/cover.jpg",
		WordCount:   7,
		ImageCount:  2,
	}, info)
}

func TestExtract_EditorFallbacks(t *testing.T) {
	html := `<html><head><title>公众号</title></head><body>
		<input id="title" value="编辑中的标题">
		<input id="author" value="作者甲">
		<textarea id="js_description">摘要内容</textarea>
		<div class="ProseMirror"><p>正文</p></div>
	</body></html>`
	info, err := Extract(html, "")
	require.NoError(t, err)
	require.Equal(t, "编辑中的标题", info.Title)
	require.Equal(t, "作者甲", info.Author)
	require.Equal(t, "摘要内容", info.Digest)
	require.Equal(t, 2, info.WordCount)
	require.Empty(t, info.URL)
}

func TestExtract_Empty(t *testing.T) {
	info, err := Extract("", "")
	require.NoError(t, err)
	require.Equal(t, Info{}, info)
}

func TestCountWords(t *testing.T) {
	require.Equal(t, 0, countWords("  \n "))
	require.Equal(t, 4, countWords("你好 go-lang"))
	require.Equal(t, 3, countWords("GPT4 写作"))
}
